package hook

import (
	apisetups "github.com/omniphi/orchestrator/pkg/api/types/setups"
	cfg_hook "github.com/omniphi/orchestrator/pkg/configs/hook"
)

func mergeEmptyStruct(struct{}, struct{}) struct{} {
	return struct{}{}
}

// Build composes the lifecycle webhook from its config.
//
// The webhook observes a SetupRequest around its provisioning run:
// Before fires with the request as it was picked up, ahead of any status
// change (a failing Before keeps the run from starting); After fires with
// the request as the run left it.
func Build(cfg cfg_hook.WebHook) Web[apisetups.Detail, struct{}] {
	return Web[apisetups.Detail, struct{}]{
		BeforeURL: cfg.Before,
		AfterURL:  cfg.After,
		Merge:     mergeEmptyStruct,
	}
}
