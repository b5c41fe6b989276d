package usecase

import (
	"context"
	"log"

	"github.com/xavierca1/leadbridge/internal/entity"
)

type TagLister interface {
	DeriveTags(ctx context.Context) ([]string, error)
}

type SyncTagsUseCase struct {
	FUB      TagLister
	Tags     entity.TagRepositoryInterface
	Settings entity.SettingsRepositoryInterface
}

func NewSyncTagsUseCase(crm TagLister, tags entity.TagRepositoryInterface, settings entity.SettingsRepositoryInterface) *SyncTagsUseCase {
	return &SyncTagsUseCase{FUB: crm, Tags: tags, Settings: settings}
}

// Execute fully replaces the local tag mirror with what FUB currently
// reports, then prunes selected tags that no longer exist remotely.
// The remote set is authoritative.
func (uc *SyncTagsUseCase) Execute(ctx context.Context) (int, error) {
	names, err := uc.FUB.DeriveTags(ctx)
	if err != nil {
		return 0, err
	}

	tags := make([]entity.Tag, 0, len(names))
	remote := make(map[string]bool, len(names))
	for _, n := range names {
		tags = append(tags, entity.Tag{Name: n, Active: true})
		remote[n] = true
	}

	if err := uc.Tags.ReplaceAll(ctx, tags); err != nil {
		return 0, &TechnicalError{Code: "TAG_SYNC_ERROR", Message: "failed to replace tag mirror: " + err.Error()}
	}

	settings, err := uc.Settings.Load(ctx)
	if err != nil {
		return len(names), nil
	}

	kept := settings.SelectedTags[:0]
	pruned := 0
	for _, t := range settings.SelectedTags {
		if remote[t] {
			kept = append(kept, t)
		} else {
			pruned++
		}
	}
	if pruned > 0 {
		settings.SelectedTags = kept
		if err := uc.Settings.Save(ctx, settings); err != nil {
			log.Printf("⚠️ tag sync: failed to prune %d selected tag(s): %v", pruned, err)
		} else {
			log.Printf("tag sync: pruned %d selected tag(s) no longer on FUB", pruned)
		}
	}

	return len(names), nil
}
