package main

import (
	"github.com/roelfdiedericks/pagesmith/internal/setup"
)

type setupCmd struct{}

func (c *setupCmd) Run(*appContext) error {
	wizard, err := setup.NewWizard()
	if err != nil {
		return err
	}
	return wizard.Run()
}
