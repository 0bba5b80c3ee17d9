package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/zintix-labs/weightlab/errs"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gonum.org/v1/gonum/stat/distuv"
)

var lang language.Tag = language.English

// Confidence 是每個項目頻率區間的信賴水準。
const Confidence = 0.95

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo" yaml:"Lo"`
	Hi float64 `json:"Hi" yaml:"Hi"`
}

// DrawReport 抽樣統計報告：觀察頻率 vs 權重推導的理論機率
type DrawReport struct {
	Summary *DrawSummary `json:"Summary" yaml:"Summary"`
	Items   []ItemStat   `json:"Items"   yaml:"Items"`
	isDone  bool
}

type DrawSummary struct {
	Table       string  `json:"Table"       yaml:"Table"`
	Policy      string  `json:"Policy"      yaml:"Policy"`
	Seed        int64   `json:"Seed"        yaml:"Seed"`
	Workers     int     `json:"Workers"     yaml:"Workers"`
	Rounds      int     `json:"Rounds"      yaml:"Rounds"`
	Size        int     `json:"Size"        yaml:"Size"`
	TotalWeight int     `json:"TotalWeight" yaml:"TotalWeight"`
	ChiSquare   float64 `json:"ChiSquare"   yaml:"ChiSquare"`
	DoF         int     `json:"DoF"         yaml:"DoF"`
	PValue      float64 `json:"PValue"      yaml:"PValue"`
	MaxAbsDev   float64 `json:"MaxAbsDev"   yaml:"MaxAbsDev"`
	OutsideCI   int     `json:"OutsideCI"   yaml:"OutsideCI"`
}

// ItemStat 單一索引的統計。同名項目各自一列（以索引區分）。
type ItemStat struct {
	Index    int     `json:"Index"    yaml:"Index"`
	Name     string  `json:"Name"     yaml:"Name"`
	Weight   int32   `json:"Weight"   yaml:"Weight"`
	Expected float64 `json:"Expected" yaml:"Expected"`
	Count    int     `json:"Count"    yaml:"Count"`
	Observed float64 `json:"Observed" yaml:"Observed"`
	CI       CI      `json:"CI"       yaml:"CI"`
	InCI     bool    `json:"InCI"     yaml:"InCI"`
}

// NewDrawReport 以平行陣列建立報告；counts 為各索引的抽中次數。
func NewDrawReport(table, policy string, names []string, weights []int32, counts []int) (*DrawReport, error) {
	if len(names) != len(weights) || len(names) != len(counts) {
		return nil, errs.Fatalf("draw report: length mismatch names=%d weights=%d counts=%d", len(names), len(weights), len(counts))
	}
	r := &DrawReport{
		Summary: &DrawSummary{Table: table, Policy: policy, Size: len(names)},
		Items:   make([]ItemStat, len(names)),
	}
	for i := range names {
		r.Items[i] = ItemStat{Index: i, Name: names[i], Weight: weights[i], Count: counts[i]}
		r.Summary.TotalWeight += int(weights[i])
		r.Summary.Rounds += counts[i]
	}
	return r, nil
}

// ============================================================
// ** 公開方法 **
// ============================================================

// Done 將計數轉換為頻率、信賴區間與卡方檢定，只計算一次。
func (r *DrawReport) Done() {
	if r.isDone {
		return
	}
	s := r.Summary
	for i := range r.Items {
		it := &r.Items[i]
		if s.TotalWeight > 0 {
			it.Expected = float64(it.Weight) / float64(s.TotalWeight)
		}
		it.Observed, it.CI = proportionCICP(it.Count, s.Rounds, Confidence)
		it.InCI = it.Expected >= it.CI.Lo && it.Expected <= it.CI.Hi
		if !it.InCI {
			s.OutsideCI++
		}
		s.MaxAbsDev = max(s.MaxAbsDev, math.Abs(it.Observed-it.Expected))
	}
	s.ChiSquare, s.DoF, s.PValue = r.chiSquare()
	r.isDone = true
}

func (r *DrawReport) WriteWith(w io.Writer, rep DrawReportRender) error {
	r.Done()
	return rep.Write(w, r)
}

// StdOut 印出耗時、摘要與逐項表格
func (r *DrawReport) StdOut(ut time.Duration) {
	r.Done()
	formatDuration(ut, r.Summary.Rounds)
	sk, sm := r.fmtBasic()
	fmt.Println(fmtTable(r.Summary.Table, sk, sm))
	fmt.Println(r.fmtItems())
}

// ============================================================
// ** 內部方法 **
// ============================================================

// chiSquare 皮爾森卡方適合度檢定，自由度 = 項目數 - 1
func (r *DrawReport) chiSquare() (stat float64, dof int, p float64) {
	n := float64(r.Summary.Rounds)
	if n == 0 || len(r.Items) < 2 {
		return 0, 0, 1
	}
	for _, it := range r.Items {
		e := n * it.Expected
		if e == 0 {
			continue
		}
		d := float64(it.Count) - e
		stat += d * d / e
	}
	dof = len(r.Items) - 1
	p = 1 - distuv.ChiSquared{K: float64(dof)}.CDF(stat)
	return stat, dof, p
}

// Clopper-Pearson exact CI for binomial proportion (k successes out of n)
func proportionCICP(k int, n int, confidence float64) (pHat float64, ci CI) {
	if n == 0 {
		return 0, CI{0, 1}
	}
	alpha := 1 - confidence
	pHat = float64(k) / float64(n)

	if k == 0 {
		ci.Lo = 0
	} else {
		b := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		ci.Lo = b.Quantile(alpha / 2)
	}
	if k == n {
		ci.Hi = 1
	} else {
		b := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		ci.Hi = b.Quantile(1 - alpha/2)
	}
	return
}

func formatDuration(d time.Duration, draws int) {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	dps := int(float64(draws) / sec)
	if sec < 60.0 {
		p.Printf("used: %.2f seconds\ndps : %d draws/sec\n", sec, dps)
		return
	}
	s := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	h := int(d.Hours())
	if h == 0 {
		p.Printf("used: %dm %ds\ndps : %d draws/sec\n", m, s, dps)
		return
	}
	p.Printf("used: %dh:%dm:%ds\ndps : %d draws/sec\n", h, m, s, dps)
}

func (r *DrawReport) fmtBasic() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	s := r.Summary
	basic := map[string]string{
		"Table":        s.Table,
		"Policy":       s.Policy,
		"Seed":         fmt.Sprintf("%d", s.Seed),
		"Workers":      p.Sprintf("%d", s.Workers),
		"Total Draws":  p.Sprintf("%d", s.Rounds),
		"Items":        p.Sprintf("%d", s.Size),
		"Total Weight": p.Sprintf("%d", s.TotalWeight),
		"Chi-Square":   p.Sprintf("%.3f (dof %d)", s.ChiSquare, s.DoF),
		"P-Value":      p.Sprintf("%.4f", s.PValue),
		"Max |Δp|":     p.Sprintf("%.4f %%", 100.0*s.MaxAbsDev),
		"Outside CI":   p.Sprintf("%d", s.OutsideCI),
	}
	keys := []string{"Table", "Policy", "Seed", "Workers", "Total Draws", "Items", "Total Weight", "Chi-Square", "P-Value", "Max |Δp|", "Outside CI"}
	return keys, basic
}

// fmtItems 逐項表格：# | item | weight | expected | observed | 95% CI
func (r *DrawReport) fmtItems() string {
	p := message.NewPrinter(lang)
	head := []string{"#", "Item", "Weight", "Expected", "Observed", "95% CI"}
	rows := make([][]string, 0, len(r.Items))
	for _, it := range r.Items {
		mark := ""
		if !it.InCI {
			mark = " *"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", it.Index),
			it.Name,
			p.Sprintf("%d", it.Weight),
			p.Sprintf("%.4f%%", 100*it.Expected),
			p.Sprintf("%.4f%%", 100*it.Observed),
			p.Sprintf("[%.4f%%,%.4f%%]%s", 100*it.CI.Lo, 100*it.CI.Hi, mark),
		})
	}
	return fmtGrid(head, rows)
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	p := message.NewPrinter(lang)
	maxKeyLen := 0
	maxValLen := 0
	for k, m := range msg {
		maxKeyLen = max(maxKeyLen, runewidth.StringWidth(k))
		maxValLen = max(maxValLen, runewidth.StringWidth(m))
	}
	maxKeyLen += 2
	maxValLen += 2

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", maxKeyLen+1+maxValLen) + "+\n"

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)
	left := max((totalInner-titleW)/2, 0)
	right := totalInner - titleW - left

	var sb strings.Builder
	sb.WriteString(top)
	sb.WriteString(p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right)))
	sb.WriteString(divider)
	for _, k := range keys {
		sb.WriteString(p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k]))))
	}
	sb.WriteString(divider)
	return sb.String()
}

// fmtGrid 多欄表格，欄寬以 runewidth 計算（項目名稱可能是全形字）
func fmtGrid(head []string, rows [][]string) string {
	width := make([]int, len(head))
	for i, h := range head {
		width[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, c := range row {
			width[i] = max(width[i], runewidth.StringWidth(c))
		}
	}
	var sb strings.Builder
	divider := func() {
		sb.WriteString("+")
		for _, w := range width {
			sb.WriteString(strings.Repeat("-", w+2) + "+")
		}
		sb.WriteString("\n")
	}
	line := func(cells []string) {
		sb.WriteString("|")
		for i, c := range cells {
			sb.WriteString(" " + c + blank(width[i]-runewidth.StringWidth(c)) + " |")
		}
		sb.WriteString("\n")
	}
	divider()
	line(head)
	divider()
	for _, row := range rows {
		line(row)
	}
	divider()
	return sb.String()
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
