package model

import (
	"strings"
	"testing"
	"time"
)

func TestAppendNote(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	stage := &ProductionStage{}

	stage.AppendNote("op-1", "started printing", at)
	if stage.Notes != "[2026-03-14T09:30:00Z] op-1: started printing" {
		t.Errorf("unexpected note format: %q", stage.Notes)
	}

	stage.AppendNote("op-2", "paper jam cleared", at.Add(10*time.Minute))
	lines := strings.Split(stage.Notes, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 note lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "[2026-03-14T09:30:00Z]") {
		t.Error("earlier note must stay first")
	}

	stage.AppendNote("op-1", "", at)
	if len(strings.Split(stage.Notes, "\n")) != 2 {
		t.Error("empty note must be a no-op")
	}
}

func TestMergeStageData(t *testing.T) {
	stage := &ProductionStage{}

	stage.MergeStageData(nil)
	if stage.StageData != nil {
		t.Error("merging nil must not allocate")
	}

	stage.MergeStageData(map[string]interface{}{"machine": "press-2", "sheets": 500})
	stage.MergeStageData(map[string]interface{}{"sheets": 520})
	if stage.StageData["machine"] != "press-2" {
		t.Errorf("expected machine preserved, got %v", stage.StageData["machine"])
	}
	if stage.StageData["sheets"] != 520 {
		t.Errorf("expected sheets overwritten, got %v", stage.StageData["sheets"])
	}
}

func TestOverdue(t *testing.T) {
	started := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	stage := &ProductionStage{
		StageStatus:       StageStatusInProgress,
		EstimatedDuration: 60,
		StartedAt:         &started,
	}

	if stage.Overdue(started.Add(30 * time.Minute)) {
		t.Error("stage within its estimate is not overdue")
	}
	if !stage.Overdue(started.Add(90 * time.Minute)) {
		t.Error("stage past its estimate is overdue")
	}

	completed := &ProductionStage{
		StageStatus:       StageStatusCompleted,
		EstimatedDuration: 60,
		StartedAt:         &started,
	}
	if completed.Overdue(started.Add(24 * time.Hour)) {
		t.Error("terminal stages are never overdue")
	}

	unstarted := &ProductionStage{StageStatus: StageStatusReady, EstimatedDuration: 60}
	if unstarted.Overdue(started) {
		t.Error("unstarted stages are never overdue")
	}
}

func TestEntryStatus(t *testing.T) {
	gated := &ProductionStage{RequiresCustomerApproval: true}
	if gated.EntryStatus() != StageStatusRequiresApproval {
		t.Errorf("gated stage enters %s", gated.EntryStatus())
	}
	open := &ProductionStage{}
	if open.EntryStatus() != StageStatusReady {
		t.Errorf("ungated stage enters %s", open.EntryStatus())
	}
}

func TestStageStatusTerminal(t *testing.T) {
	for status, terminal := range map[StageStatus]bool{
		StageStatusPending:          false,
		StageStatusReady:            false,
		StageStatusInProgress:       false,
		StageStatusRequiresApproval: false,
		StageStatusOnHold:           false,
		StageStatusCompleted:        true,
		StageStatusRejected:         true,
	} {
		if status.Terminal() != terminal {
			t.Errorf("%s.Terminal() = %v, want %v", status, status.Terminal(), terminal)
		}
	}
}
