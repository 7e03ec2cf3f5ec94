// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rl-actor/internal/app"
	"rl-actor/internal/app/learner"
	"rl-actor/pkg/config"
	"rl-actor/pkg/shutdown"
)

func main() {
	cfg, err := config.LoadLearnerConfig()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	boot, err := app.NewBootstrap(context.Background(), cfg, "rl-learner")
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}

	application, err := learner.NewApp(boot)
	if err != nil {
		log.Fatalf("初始化应用失败: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		boot.Flag.Trigger("signal " + sig.String())
	}()

	if err := application.Start(context.Background()); err != nil && !errors.Is(err, shutdown.ErrShutdown) {
		log.Printf("启动应用失败: %v", err)
		boot.Flag.Trigger("start failed")
	}

	<-application.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := application.Shutdown(ctx); err != nil {
		log.Printf("关闭应用失败: %v", err)
	}
	fmt.Println("learner 已关闭")
}
