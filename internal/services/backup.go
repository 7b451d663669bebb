package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"cashledger/internal/backup"
	"cashledger/internal/core"
	"cashledger/internal/ledger"
	"cashledger/internal/notify"
)

// Storage keys used in backup snapshots.
const (
	budgetKey     = "monthly_budget"
	incomeSuffix  = "_income"
	expenseSuffix = "_expense"
)

// BackupService exports and restores whole accounts.
type BackupService struct {
	store    ledger.Store
	notifier notify.Notifier
	monitor  *BudgetMonitor
	dir      string
	now      func() time.Time
}

func NewBackupService(store ledger.Store, notifier notify.Notifier, monitor *BudgetMonitor, dir string) *BackupService {
	return &BackupService{store: store, notifier: notifier, monitor: monitor, dir: dir, now: time.Now}
}

// Export reads transactions, budget and both aggregate families in one unit.
func (s *BackupService) Export(ctx context.Context, sess core.Session) (backup.Snapshot, error) {
	if err := sess.Validate(); err != nil {
		return backup.Snapshot{}, err
	}
	snap := backup.NewSnapshot()
	err := s.store.Atomically(ctx, func(u ledger.Unit) error {
		raw, err := u.RawRecords(ctx, sess.UserID)
		if err != nil {
			return err
		}
		snap.Transactions = raw

		cfg, err := u.GetBudget(ctx, sess.UserID)
		if err != nil {
			return err
		}
		if cfg.Set {
			snap.Budgets[budgetKey] = cfg.Ceiling.String()
		}

		months, err := u.ListMonthlyAggregates(ctx, sess.UserID)
		if err != nil {
			return err
		}
		for _, agg := range months {
			snap.Incomes[agg.Month.String()+incomeSuffix] = agg.Income.String()
			snap.Expenses[agg.Month.String()+expenseSuffix] = agg.Expense.String()
		}

		cats, err := u.ListCategoryAggregates(ctx, sess.UserID)
		if err != nil {
			return err
		}
		for _, agg := range cats {
			snap.Categories[agg.Category+"_"+string(agg.Kind)] = agg.Total.String()
		}
		return nil
	})
	if err != nil {
		return backup.Snapshot{}, fmt.Errorf("export ledger: %w", err)
	}
	return snap, nil
}

type monthCell struct {
	month core.Month
	kind  core.Kind
	value core.Money
}

type categoryCell struct {
	category string
	kind     core.Kind
	value    core.Money
}

// Import replaces the account's ledger with the snapshot. The snapshot is
// parsed completely before anything is written; the replacement is one unit.
func (s *BackupService) Import(ctx context.Context, sess core.Session, snap backup.Snapshot) error {
	if err := sess.Validate(); err != nil {
		return err
	}

	verr := &core.ValidationError{}
	var budget *core.Money
	for key, value := range snap.Budgets {
		if key != budgetKey {
			verr.Add("budgets."+key, errors.New("unknown key"))
			continue
		}
		m, err := core.ParseMoney(value)
		if err != nil {
			verr.Add("budgets."+key, err)
			continue
		}
		budget = &m
	}
	var months []monthCell
	parseMonths := func(section string, cells map[string]string, suffix string, kind core.Kind) {
		for key, value := range cells {
			month, err := core.ParseMonth(strings.TrimSuffix(key, suffix))
			if err != nil || !strings.HasSuffix(key, suffix) {
				verr.Add(section+"."+key, core.ErrInvalidMonth)
				continue
			}
			m, err := core.ParseMoney(value)
			if err != nil {
				verr.Add(section+"."+key, err)
				continue
			}
			months = append(months, monthCell{month: month, kind: kind, value: m})
		}
	}
	parseMonths("incomes", snap.Incomes, incomeSuffix, core.Income)
	parseMonths("expenses", snap.Expenses, expenseSuffix, core.Expense)

	var cats []categoryCell
	for key, value := range snap.Categories {
		i := strings.LastIndex(key, "_")
		if i <= 0 {
			verr.Add("categories."+key, core.ErrEmptyCategory)
			continue
		}
		kind, err := core.ParseKind(key[i+1:])
		if err != nil {
			verr.Add("categories."+key, err)
			continue
		}
		m, err := core.ParseMoney(value)
		if err != nil {
			verr.Add("categories."+key, err)
			continue
		}
		cats = append(cats, categoryCell{category: key[:i], kind: kind, value: m})
	}
	if err := verr.Err(); err != nil {
		return err
	}

	err := s.store.Atomically(ctx, func(u ledger.Unit) error {
		if err := u.ClearUser(ctx, sess.UserID); err != nil {
			return err
		}
		for id, raw := range snap.Transactions {
			if err := u.PutRawRecord(ctx, sess.UserID, id, raw); err != nil {
				return err
			}
		}
		if budget != nil {
			if err := u.SetBudget(ctx, sess.UserID, *budget); err != nil {
				return err
			}
		}
		for _, c := range months {
			if err := u.SetMonthCell(ctx, sess.UserID, c.month, c.kind, c.value); err != nil {
				return err
			}
		}
		for _, c := range cats {
			if err := u.SetCategoryCell(ctx, sess.UserID, c.category, c.kind, c.value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("import ledger: %w", err)
	}
	if s.monitor != nil {
		s.monitor.Forget(sess.UserID)
	}
	slog.InfoContext(ctx, "Ledger restored",
		"user_id", sess.UserID,
		"transactions", len(snap.Transactions),
		"months", len(months),
		"categories", len(cats))
	return nil
}

// Backup writes a snapshot file to the backup directory and reports the
// outcome to the notifier.
func (s *BackupService) Backup(ctx context.Context, sess core.Session) (string, error) {
	path, err := s.backup(ctx, sess)
	s.report(ctx, sess, "backup", err)
	return path, err
}

// userDir is the account's private backup directory. The email is hashed so
// it never reaches the file system as a path.
func (s *BackupService) userDir(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:8]))
}

// List returns the account's backup file names, newest first.
func (s *BackupService) List(ctx context.Context, sess core.Session) ([]string, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	files, err := backup.List(s.userDir(sess.UserID))
	if err != nil {
		return nil, err
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = filepath.Base(f)
	}
	return names, nil
}

func (s *BackupService) backup(ctx context.Context, sess core.Session) (string, error) {
	snap, err := s.Export(ctx, sess)
	if err != nil {
		return "", err
	}
	path, err := backup.Write(s.userDir(sess.UserID), snap, s.now())
	if err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "Backup written", "user_id", sess.UserID, "path", path)
	return path, nil
}

// Restore imports the named backup file of the account, or its newest one
// when name is empty, and reports the outcome. It returns the file path.
func (s *BackupService) Restore(ctx context.Context, sess core.Session, name string) (string, error) {
	path, err := s.restore(ctx, sess, name)
	s.report(ctx, sess, "restore", err)
	return path, err
}

func (s *BackupService) restore(ctx context.Context, sess core.Session, name string) (string, error) {
	if err := sess.Validate(); err != nil {
		return "", err
	}
	dir := s.userDir(sess.UserID)
	var path string
	if name == "" {
		latest, err := backup.Latest(dir)
		if err != nil {
			return "", err
		}
		path = latest
	} else {
		if !backup.ValidName(name) {
			return "", fmt.Errorf("%w: %q", backup.ErrInvalidName, name)
		}
		path = filepath.Join(dir, name)
	}
	snap, err := backup.Read(path)
	if err != nil {
		return "", err
	}
	return path, s.Import(ctx, sess, snap)
}

func (s *BackupService) report(ctx context.Context, sess core.Session, op string, err error) {
	if err != nil {
		slog.ErrorContext(ctx, "Backup operation failed", "operation", op, "user_id", sess.UserID, "error", err)
	}
	if s.notifier == nil || errors.Is(err, core.ErrNoSession) {
		return
	}
	if nerr := s.notifier.NotifyBackupResult(ctx, sess.UserID, err == nil); nerr != nil {
		slog.ErrorContext(ctx, "Backup notification failed", "operation", op, "user_id", sess.UserID, "error", nerr)
	}
}
