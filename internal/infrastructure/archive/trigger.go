package archive

import (
	"context"
	"fmt"

	"ExecOrdersMonitor/internal/domain"
	"ExecOrdersMonitor/internal/ports"
)

// AddonRunner schedules a DocumentCloud add-on run. *documentcloud.Client
// satisfies it.
type AddonRunner interface {
	RunAddon(ctx context.Context, stage domain.StageName, addon string, parameters map[string]any) (string, error)
}

// Trigger asks the Internet Archive export add-on to mirror an uploaded
// document. Success means the run was accepted; the export itself finishes
// asynchronously on the DocumentCloud side.
type Trigger struct {
	runner AddonRunner
	addon  string
}

var _ ports.ArchiveSink = (*Trigger)(nil)

// NewTrigger builds the archive sink around an add-on runner.
func NewTrigger(runner AddonRunner, addon string) *Trigger {
	return &Trigger{runner: runner, addon: addon}
}

// ItemName derives the archive item identifier for one document.
func ItemName(meta domain.Metadata) string {
	return "executive-order-" + meta.OrderID
}

// Archive schedules the export and returns the archive item name the
// decentralized stage replicates later.
func (t *Trigger) Archive(ctx context.Context, meta domain.Metadata, doc domain.DocumentRef) (string, error) {
	item := ItemName(meta)

	if _, err := t.runner.RunAddon(ctx, domain.StageArchive, t.addon, map[string]any{
		"item_name": item,
		"filecoin":  false,
		"documents": []string{doc.ID},
	}); err != nil {
		return "", fmt.Errorf("trigger archive export: %w", err)
	}

	return item, nil
}
