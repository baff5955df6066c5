package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Scoring parameters for the dynamic selector ranking.
const (
	recencyDecayDays    = 14.0
	frequencyWindowDays = 30
	recencyWeight       = 0.60
	frequencyWeight     = 0.30
	contextWeight       = 0.10
)

// Record is one completed selection. Records are append-only; the ledger is
// never rewritten except by Clear.
type Record struct {
	SelectedAtUnix int64  `json:"selected_at_unix"`
	Identity       string `json:"identity"`
	AccountID      string `json:"account_id"`
	AccountName    string `json:"account_name"`
	RoleName       string `json:"role_name"`
	Cwd            string `json:"cwd,omitempty"`
}

// Ledger reads and appends selection history at a single file path.
// Concurrent appends from separate processes are safe because each append is
// one O_APPEND write of a complete line; do not run Clear concurrently with
// an active selection.
type Ledger struct {
	path string
}

// NewLedger opens a ledger at path, or at the default state location when
// path is empty.
func NewLedger(path string) *Ledger {
	if path == "" {
		path = DefaultPath()
	}
	return &Ledger{path: path}
}

// DefaultPath returns the ledger location under the user state home.
func DefaultPath() string {
	return filepath.Join(xdg.StateHome, "roleman", "history.jsonl")
}

// Path returns the ledger file path.
func (l *Ledger) Path() string {
	return l.path
}

// Append records one selection. The record is serialized to a single line
// and written with a single append so concurrent writers cannot interleave.
func (l *Ledger) Append(record Record) error {
	if record.SelectedAtUnix == 0 {
		record.SelectedAtUnix = time.Now().Unix()
	}
	if record.Cwd == "" {
		record.Cwd = currentCwd()
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0700); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal history record: %w", err)
	}
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer file.Close()
	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append history record: %w", err)
	}
	return nil
}

// Load reads every well-formed record in insertion order. Malformed lines
// are skipped, not fatal.
func (l *Ledger) Load() ([]Record, error) {
	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record Record
		if err := json.Unmarshal(line, &record); err != nil {
			log.Debug("skipping malformed history entry", "line", lineNumber, "err", err)
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}
	return records, nil
}

// Recent returns up to limit records, most recent first.
func (l *Ledger) Recent(limit int) ([]Record, error) {
	records, err := l.Load()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].SelectedAtUnix > records[j].SelectedAtUnix
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Clear truncates the ledger.
func (l *Ledger) Clear() error {
	err := os.Remove(l.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Stats aggregates the history signals for one account/role pair.
type Stats struct {
	Recency    float64
	Frequency  int
	CwdMatches bool
}

// Key identifies one account/role pair in a stats map.
type Key struct {
	AccountID string
	RoleName  string
}

// BuildStats folds records for the given identity into per-role stats:
// recency keeps the strongest exponential decay over elapsed days,
// frequency counts selections within the window, and the cwd flag marks any
// record whose stored working directory equals cwd.
func BuildStats(records []Record, identity string, now time.Time, cwd string) map[Key]Stats {
	stats := make(map[Key]Stats)
	nowUnix := now.Unix()
	for _, record := range records {
		if record.Identity != identity {
			continue
		}
		key := Key{AccountID: record.AccountID, RoleName: record.RoleName}
		entry := stats[key]
		ageSeconds := nowUnix - record.SelectedAtUnix
		if ageSeconds < 0 {
			ageSeconds = 0
		}
		ageDays := float64(ageSeconds) / 86400.0
		recency := math.Exp(-ageDays / recencyDecayDays)
		if recency > entry.Recency {
			entry.Recency = recency
		}
		if ageSeconds <= frequencyWindowDays*86400 {
			entry.Frequency++
		}
		if cwd != "" && record.Cwd == cwd {
			entry.CwdMatches = true
		}
		stats[key] = entry
	}
	return stats
}

// Score combines the history signals into a single value in [0, 1]. Pairs
// with no history score zero.
func Score(stats map[Key]Stats, accountID, roleName string) float64 {
	entry, ok := stats[Key{AccountID: accountID, RoleName: roleName}]
	if !ok {
		return 0
	}
	frequency := math.Log(float64(entry.Frequency)+1) / math.Log(float64(frequencyWindowDays)+1)
	context := 0.0
	if entry.CwdMatches {
		context = 1.0
	}
	return entry.Recency*recencyWeight + frequency*frequencyWeight + context*contextWeight
}

func currentCwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(cwd); err == nil {
		return resolved
	}
	return cwd
}

// CurrentCwd exposes the canonicalized working directory used for the
// contextual boost.
func CurrentCwd() string {
	return currentCwd()
}

// FormatRecord renders one record the way `roleman history` prints it.
func FormatRecord(record Record) string {
	timestamp := time.Unix(record.SelectedAtUnix, 0).UTC().Format(time.RFC3339)
	cwd := record.Cwd
	if cwd == "" {
		cwd = "-"
	}
	return fmt.Sprintf("%s\t%s\t%s\t%s\t%s", timestamp, record.Identity, record.AccountID, record.RoleName, cwd)
}
