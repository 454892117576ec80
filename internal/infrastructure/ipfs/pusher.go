package ipfs

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

// Pusher replicates an archived document to IPFS and Filecoin through the
// same export add-on, this time with the filecoin flag set. The push is
// irreversible, which is why the publisher only calls it after the archive
// stage succeeded.
type Pusher struct {
	runner AddonRunner
	addon  string
}

var _ ports.DecentralizedSink = (*Pusher)(nil)

// NewPusher builds the decentralized sink around an add-on runner.
func NewPusher(runner AddonRunner, addon string) *Pusher {
	return &Pusher{runner: runner, addon: addon}
}

// Push schedules the replication of an existing archive item and returns the
// add-on run id as the stage reference.
func (p *Pusher) Push(ctx context.Context, _ domain.Metadata, doc domain.DocumentRef, archiveItem string) (string, error) {
	run, err := p.runner.RunAddon(ctx, domain.StageDecentralized, p.addon, map[string]any{
		"item_name": archiveItem,
		"filecoin":  true,
		"documents": []string{doc.ID},
	})
	if err != nil {
		return "", fmt.Errorf("trigger decentralized push: %w", err)
	}
	return run, nil
}
