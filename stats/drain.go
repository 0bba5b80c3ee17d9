package stats

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/message"
)

// DrainReport 記錄以 NextThenRemove 逐一抽空整張表的順序。
type DrainReport struct {
	Table   string   `json:"Table"   yaml:"Table"`
	Seed    int64    `json:"Seed"    yaml:"Seed"`
	Order   []string `json:"Order"   yaml:"Order"`
	Weights []int32  `json:"Weights" yaml:"Weights"`
}

// StdOut 印出抽出順序（每行一個：名次、項目、當時權重）
func (d *DrainReport) StdOut(ut time.Duration) {
	p := message.NewPrinter(lang)
	p.Printf("used: %.4f seconds\n", ut.Seconds())
	rows := make([][]string, len(d.Order))
	for i, name := range d.Order {
		rows[i] = []string{fmt.Sprintf("%d", i+1), name, p.Sprintf("%d", d.Weights[i])}
	}
	fmt.Println(strings.TrimSpace(d.Table) + " drain order")
	fmt.Println(fmtGrid([]string{"Rank", "Item", "Weight"}, rows))
}
