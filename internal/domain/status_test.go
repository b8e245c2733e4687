package domain

import "testing"

func TestCustomNodeStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to CustomNodeStatus
		expected bool
	}{
		{CustomNodeStatusDraft, CustomNodeStatusPending, true},
		{CustomNodeStatusRejected, CustomNodeStatusPending, true},
		{CustomNodeStatusPending, CustomNodeStatusApproved, true},
		{CustomNodeStatusPending, CustomNodeStatusRejected, true},
		{CustomNodeStatusApproved, CustomNodeStatusPublished, true},
		{CustomNodeStatusPublished, CustomNodeStatusDeprecated, true},
		{CustomNodeStatusDeprecated, CustomNodeStatusPublished, true},
		{CustomNodeStatusDeprecated, CustomNodeStatusRemoved, true},
		{CustomNodeStatusDraft, CustomNodeStatusPublished, false},
		{CustomNodeStatusRemoved, CustomNodeStatusPublished, false},
		{CustomNodeStatusPublished, CustomNodeStatusDraft, false},
		{CustomNodeStatusPending, CustomNodeStatusPending, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.expected {
			t.Errorf("%s → %s: expected %v, got %v", tt.from, tt.to, tt.expected, got)
		}
	}
}

func TestCustomNodeStatus_IsListed(t *testing.T) {
	listed := map[CustomNodeStatus]bool{
		CustomNodeStatusDraft:      false,
		CustomNodeStatusPending:    false,
		CustomNodeStatusApproved:   false,
		CustomNodeStatusRejected:   false,
		CustomNodeStatusPublished:  true,
		CustomNodeStatusDeprecated: true,
		CustomNodeStatusRemoved:    false,
	}
	for status, expected := range listed {
		if !status.IsValid() {
			t.Errorf("%s should be valid", status)
		}
		if got := status.IsListed(); got != expected {
			t.Errorf("%s: expected listed=%v, got %v", status, expected, got)
		}
	}

	if CustomNodeStatus("archived").IsValid() {
		t.Error("unknown status should be invalid")
	}
	if len(CustomNodeStatusDraft.SourcesOf()) != 0 {
		t.Error("draft should have no sources")
	}
}
