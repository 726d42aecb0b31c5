package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	kratoslog "github.com/go-kratos/kratos/v2/log"
	"google.golang.org/protobuf/encoding/protojson"

	"goim-friend/pkg/auth"
	"goim-friend/pkg/client"
)

func main() {
	// 命令行参数
	var (
		addr    = flag.String("addr", "localhost:22003", "好友服务gRPC地址")
		userID  = flag.Int64("user", 0, "调试模式下的用户ID，配合 -secret 签发token")
		secret  = flag.String("secret", "focusandinsist", "JWT密钥")
		token   = flag.String("token", "", "直接使用的token，优先于 -user")
		timeout = flag.Duration("timeout", 5*time.Second, "调用超时")
		verbose = flag.Bool("v", false, "输出连接日志")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: friendctl [flags] <Method> ['{json payload}']\n\n")
		fmt.Fprintf(os.Stderr, "example: friendctl -user 1 CreateInvite '{\"target\":\"2\"}'\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	method := flag.Arg(0)

	payload := map[string]interface{}{}
	if flag.NArg() > 1 {
		if err := json.Unmarshal([]byte(flag.Arg(1)), &payload); err != nil {
			log.Fatalf("invalid json payload: %v", err)
		}
	}

	bearer := *token
	if bearer == "" && *userID > 0 {
		signed, err := auth.GenerateJWT(*userID, fmt.Sprintf("debug-%d", *userID), *secret, time.Hour)
		if err != nil {
			log.Fatalf("failed to sign debug token: %v", err)
		}
		bearer = signed
	}

	out := io.Discard
	if *verbose {
		out = os.Stderr
	}
	cm := client.NewClientManager(kratoslog.NewStdLogger(out), client.WithBearerToken(bearer))
	defer cm.CloseAll()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, err := cm.GetGRPCClientWithRetry(ctx, *addr, 3)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}

	resp, err := client.NewFriendClient(conn).Call(ctx, method, payload)
	if err != nil {
		log.Fatalf("%s failed: %v", method, err)
	}

	text, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(resp)
	if err != nil {
		log.Fatalf("failed to format response: %v", err)
	}
	fmt.Println(string(text))
}
