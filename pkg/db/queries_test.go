package db

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testDB(t *testing.T) *Database {
	t.Helper()
	d, err := NewInMemory()
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	if err := ApplyMigrations(d); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func sampleSession(id string) SessionRecord {
	return SessionRecord{
		ID:           id,
		AccountID:    "acct-1",
		Market:       "R_100",
		ContractType: "CALL",
		Stake:        5,
		TakeProfit:   100,
		StopLoss:     50,
		TradingMode:  "standard",
		StartedAt:    time.Now().UTC().Truncate(time.Second),
	}
}

func TestSessionLifecycle(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	if err := d.CreateSession(ctx, sampleSession("s1")); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	got, err := d.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.AccountID != "acct-1" || got.Market != "R_100" || got.StopReason != "" {
		t.Fatalf("loaded session wrong: %+v", got)
	}
	if got.StoppedAt != nil {
		t.Fatal("fresh session already has a stop time")
	}

	if err := d.CloseSession(ctx, "s1", "Take profit target reached", 3, 1, 40, 60); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}

	got, err = d.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession after close: %v", err)
	}
	if got.StopReason != "Take profit target reached" || got.Wins != 3 || got.Losses != 1 {
		t.Fatalf("closed session wrong: %+v", got)
	}
	if got.StoppedAt == nil {
		t.Fatal("closed session missing stop time")
	}
}

func TestGetSessionNotFound(t *testing.T) {
	d := testDB(t)
	if _, err := d.GetSession(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAppendAndListRuns(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	if err := d.CreateSession(ctx, sampleSession("s2")); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	for i, profit := range []float64{4.75, -5, 14.25} {
		rec := RunRecord{SessionID: "s2", Run: i + 1, Stake: 5 * float64(i+1), SignedProfit: profit}
		if err := d.AppendRun(ctx, rec); err != nil {
			t.Fatalf("AppendRun %d: %v", i+1, err)
		}
	}

	runs, err := d.ListRuns(ctx, "s2")
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, expected 3", len(runs))
	}
	for i, r := range runs {
		if r.Run != i+1 {
			t.Fatalf("runs out of order: %+v", runs)
		}
	}

	// Re-appending the same run index overwrites rather than duplicating.
	if err := d.AppendRun(ctx, RunRecord{SessionID: "s2", Run: 2, Stake: 7, SignedProfit: -7}); err != nil {
		t.Fatalf("AppendRun upsert: %v", err)
	}
	runs, _ = d.ListRuns(ctx, "s2")
	if len(runs) != 3 || runs[1].Stake != 7 || runs[1].SignedProfit != -7 {
		t.Fatalf("upsert did not replace run 2: %+v", runs)
	}
}

func TestRecordDailyResultFolds(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	for _, p := range []float64{4.75, -5, 9.5} {
		if err := d.RecordDailyResult(ctx, "acct-1", p); err != nil {
			t.Fatalf("RecordDailyResult(%v): %v", p, err)
		}
	}

	var trades, wins, losses int
	var pnl float64
	today := time.Now().Format("2006-01-02")
	err := d.DB.QueryRowContext(ctx, `
		SELECT trades, pnl, wins, losses FROM daily_metrics WHERE account_id = ? AND date = ?
	`, "acct-1", today).Scan(&trades, &pnl, &wins, &losses)
	if err != nil {
		t.Fatalf("query daily metrics: %v", err)
	}
	if trades != 3 || wins != 2 || losses != 1 {
		t.Fatalf("counts %d/%d/%d, expected 3/2/1", trades, wins, losses)
	}
	if pnl != 9.25 {
		t.Fatalf("pnl=%v, expected 9.25", pnl)
	}
}
