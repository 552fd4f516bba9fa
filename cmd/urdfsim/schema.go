package main

import (
	"github.com/urfave/cli/v2"

	"go.viam.com/urdfsim/config"
)

// SchemaAction prints the JSON schema of the config file.
func SchemaAction(c *cli.Context) error {
	data, err := config.Schema()
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", data)
	return nil
}
