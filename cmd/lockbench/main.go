// Command lockbench fires a configurable number of concurrent transactions
// against a shared table and a shared set of records, contending under the
// lock manager's no-wait policy, then renders a grant/refusal report.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"txcore/pkg/concurrency/lock"
	"txcore/pkg/concurrency/transaction"
	"txcore/pkg/logging"
	"txcore/pkg/primitives"
)

// config holds the benchmark's tunables, bound directly with the flag
// package rather than through a config file or a third-party flags
// library.
type config struct {
	transactions int
	records      int
	tableID      int64
	logLevel     string
}

func parseConfig() config {
	var cfg config
	flag.IntVar(&cfg.transactions, "txns", 200, "number of concurrent transactions to fire")
	flag.IntVar(&cfg.records, "records", 8, "number of distinct records contended over")
	flag.Int64Var(&cfg.tableID, "table", 1, "table id locked by every transaction")
	flag.StringVar(&cfg.logLevel, "log-level", "INFO", "log level: DEBUG, INFO, WARN, ERROR")
	flag.Parse()
	return cfg
}

// report tallies grant/refusal outcomes per lock mode across the run.
type report struct {
	grantedIS, refusedIS int64
	grantedIX, refusedIX int64
	grantedS, refusedS   int64
	grantedX, refusedX   int64
}

func main() {
	cfg := parseConfig()
	if err := logging.Init(logging.Config{Level: logging.LogLevel(cfg.logLevel)}); err != nil {
		fmt.Fprintln(os.Stderr, "logging init:", err)
		os.Exit(1)
	}
	defer logging.Close()

	locks := lock.NewManager()
	tableLock := lock.TableLock(primitives.TableID(cfg.tableID))
	records := make([]lock.DataID, cfg.records)
	for i := range records {
		records[i] = lock.RecordLock(primitives.TableID(cfg.tableID), primitives.NewRID(0, primitives.SlotID(i)))
	}

	rep := runBenchmark(locks, tableLock, records, cfg.transactions)

	if err := renderReport(rep, cfg); err != nil {
		fmt.Fprintln(os.Stderr, "render report:", err)
		os.Exit(1)
	}
}

func runBenchmark(locks *lock.Manager, tableLock lock.DataID, records []lock.DataID, n int) report {
	var rep report
	var g errgroup.Group

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			txn := transaction.New()
			rec := records[i%len(records)]

			okIS, errIS := locks.LockISOnTable(txn, tableLock)
			tally(&rep.grantedIS, &rep.refusedIS, okIS, errIS)

			var okLeaf bool
			var errLeaf error
			if i%2 == 0 {
				okLeaf, errLeaf = locks.LockSharedOnRecord(txn, rec)
				tally(&rep.grantedS, &rep.refusedS, okLeaf, errLeaf)
			} else {
				okLeaf, errLeaf = locks.LockExclusiveOnRecord(txn, rec)
				tally(&rep.grantedX, &rep.refusedX, okLeaf, errLeaf)
			}

			for _, entry := range txn.LockSet() {
				if id, ok := entry.Key.(lock.DataID); ok {
					locks.Unlock(txn, id)
				}
			}
			return nil
		})
	}

	_ = g.Wait()
	return rep
}

func tally(granted, refused *int64, ok bool, err error) {
	if ok {
		atomic.AddInt64(granted, 1)
	} else if err != nil {
		atomic.AddInt64(refused, 1)
	}
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	primaryColor   = lipgloss.Color("62")
	secondaryColor = lipgloss.Color("228")
)

type reportModel struct {
	title string
	t     table.Model
}

func (m reportModel) Init() tea.Cmd { return tea.Quit }
func (m reportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, tea.Quit
}
func (m reportModel) View() string {
	return headerStyle.Render(m.title) + "\n" + m.t.View() + "\n"
}

func renderReport(rep report, cfg config) error {
	rows := []table.Row{
		{"IS", fmt.Sprintf("%d", rep.grantedIS), fmt.Sprintf("%d", rep.refusedIS)},
		{"S", fmt.Sprintf("%d", rep.grantedS), fmt.Sprintf("%d", rep.refusedS)},
		{"X", fmt.Sprintf("%d", rep.grantedX), fmt.Sprintf("%d", rep.refusedX)},
	}

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Mode", Width: 8},
			{Title: "Granted", Width: 10},
			{Title: "Refused", Width: 10},
		}),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+1),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(primaryColor).
		BorderBottom(true).
		Bold(true).
		Foreground(primaryColor)
	styles.Selected = styles.Selected.
		Foreground(secondaryColor).
		Bold(false)
	t.SetStyles(styles)

	title := fmt.Sprintf("lockbench: %d transactions over %d records", cfg.transactions, cfg.records)
	p := tea.NewProgram(reportModel{title: title, t: t})
	_, err := p.Run()
	return err
}
