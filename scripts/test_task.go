package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// lineFilter 決定一行輸出是否印出與顏色；回傳 false 表示略過
type lineFilter func(line string) bool

// cleanCache 對應 go clean -testcache
func cleanCache() error {
	cmd := exec.Command("go", "clean", "-testcache")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go clean -testcache failed: %w", err)
	}
	return nil
}

// goCmd 執行 go 子指令；filter 為 nil 時直接導向終端，否則像 grep 一樣逐行過濾 (2>&1)。
func goCmd(filter lineFilter, args ...string) error {
	cmd := exec.Command("go", args...)
	if filter == nil {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return cmd.Run()
	}

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("error starting go %s: %w", args[0], err)
	}
	done := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		done <- err
	}()

	scanner := bufio.NewScanner(pr)
	for scanner.Scan() {
		filter(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		PrintRed(fmt.Sprintf("scanner error: %v", err))
	}
	return <-done
}

// okFail 只印出 ok / FAIL 與編譯失敗的關鍵行
func okFail(line string) bool {
	switch {
	case strings.HasPrefix(line, "ok"):
		PrintGreen(line)
	case strings.HasPrefix(line, "FAIL"):
		PrintRed(line)
	case strings.Contains(line, "build failed") || strings.Contains(line, "setup failed"):
		// 捕捉嚴重錯誤關鍵字，不然過濾太乾淨會看不出為什麼沒反應
		PrintRed(line)
	default:
		return false
	}
	return true
}

// detail 印出全部，但略過 [no test files]
func detail(line string) bool {
	if strings.Contains(line, "[no test files]") {
		return false
	}
	if !okFail(line) {
		fmt.Println(line)
	}
	return true
}

func runTest() error {
	PrintGreen("running tests")
	_ = cleanCache() // clean 失敗不一定要中斷
	if err := goCmd(okFail, "test", "./...", "-cover", "-count=1"); err != nil {
		return fmt.Errorf("tests finished with errors")
	}
	return nil
}

func runTestAll() error {
	PrintGreen("running tests (all with coverage)")
	if err := cleanCache(); err != nil {
		return err
	}
	if err := goCmd(nil, "test", "./...", "-cover"); err != nil {
		return fmt.Errorf("tests (with coverage) finished with errors")
	}
	return nil
}

func runTestDetail() error {
	PrintGreen("running tests (detail)")
	if err := cleanCache(); err != nil {
		return err
	}
	if err := goCmd(detail, "test", "./...", "-v", "-count=1"); err != nil {
		return fmt.Errorf("tests (detail) finished with errors")
	}
	return nil
}

// runRace 針對有共享狀態的套件（即時表 runtime、HTTP 層、亂數核心）跑 -race
func runRace() error {
	PrintGreen("running race tests")
	pkgs := []string{".", "./sdk/...", "./server/..."}
	if err := goCmd(okFail, append([]string{"test", "-race", "-count=1"}, pkgs...)...); err != nil {
		return fmt.Errorf("race tests finished with errors")
	}
	return nil
}

// runSim 以 demo 設定、固定 seed 跑 4 個 worker 的分佈驗證
func runSim(table string) error {
	PrintYellow("simulating table " + table)
	return goCmd(nil, "run", "./cmd/run", "-table", table, "-worker", "4", "-rounds", "1000000", "-seed", "20251019")
}
