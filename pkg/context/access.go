package context

import (
	"context"
	"sync"
)

const accessRecordKey contextKey = "access_record"

// AccessRecord 单次请求的业务标识
//
// 由访问日志中间件在请求入口创建，下游通过 WithUserID / WithInviteID 设置的ID会回写到这里，
// 请求结束时访问日志即可带上认证用户和操作的邀请。
type AccessRecord struct {
	mu       sync.Mutex
	userID   int64
	inviteID int64
}

// WithAccessRecord 创建访问记录并放入context
func WithAccessRecord(ctx context.Context) (context.Context, *AccessRecord) {
	rec := &AccessRecord{}
	return context.WithValue(ctx, accessRecordKey, rec), rec
}

func accessRecordFrom(ctx context.Context) *AccessRecord {
	if ctx == nil {
		return nil
	}
	rec, _ := ctx.Value(accessRecordKey).(*AccessRecord)
	return rec
}

// UserID 请求中最后一次设置的用户ID
func (r *AccessRecord) UserID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.userID
}

// InviteID 请求中最后一次设置的邀请ID
func (r *AccessRecord) InviteID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inviteID
}

func (r *AccessRecord) setUserID(id int64) {
	r.mu.Lock()
	r.userID = id
	r.mu.Unlock()
}

func (r *AccessRecord) setInviteID(id int64) {
	r.mu.Lock()
	r.inviteID = id
	r.mu.Unlock()
}
