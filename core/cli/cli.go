package cli

import (
	"github.com/chenhy0213/test-tool-with-db/core/cli/cmd"
	"github.com/chenhy0213/test-tool-with-db/core/infrastructure/logging"
)

// Execute runs the CLI
func Execute() error {
	if err := cmd.Execute(); err != nil {
		tag := logging.ErrorTag(err)
		if tag == "" {
			tag = "CLI"
		}
		logging.New(tag).Error(err.Error())
		return err
	}
	return nil
}
