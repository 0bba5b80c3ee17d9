// Copyright 2025 Zintix Labs
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
	"fmt"
	"os"
)

// Usage:
//
//	go run ./scripts test          # 只顯示 ok / FAIL
//	go run ./scripts test-all      # 含 coverage
//	go run ./scripts test-detail   # verbose
//	go run ./scripts race          # sampler / runtime 的 -race 測試
//	go run ./scripts sim [table]   # 以 demo 設定跑一次分佈驗證
func main() {
	// 如果沒有送任何參數進來，告訴用戶需要帶上 task
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts [test|test-all|test-detail|race|sim]")
		os.Exit(1)
	}
	if err := selectTask(os.Args[1], os.Args[2:]); err != nil {
		PrintRed(err.Error())
		os.Exit(1)
	}
}

func selectTask(task string, args []string) error {
	switch task {
	case "test":
		return runTest()
	case "test-all":
		return runTestAll()
	case "test-detail":
		return runTestDetail()
	case "race":
		return runRace()
	case "sim":
		table := "coinbox"
		if len(args) > 0 {
			table = args[0]
		}
		return runSim(table)
	default:
		return fmt.Errorf("unknown task: %s", task)
	}
}

// ANSI 顏色代碼 (Windows 10+ 的 cmd/powershell 皆支援)
type ansiColor string

const (
	colorYellow ansiColor = "\033[33m"
	colorGreen  ansiColor = "\033[32m"
	colorRed    ansiColor = "\033[31m"
	colorReset  ansiColor = "\033[0m"
)

func fmtColor(color ansiColor, msg string) {
	fmt.Printf("%s%s%s\n", color, msg, colorReset)
}

func PrintRed(msg string)    { fmtColor(colorRed, msg) }
func PrintGreen(msg string)  { fmtColor(colorGreen, msg) }
func PrintYellow(msg string) { fmtColor(colorYellow, msg) }
