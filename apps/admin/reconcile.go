package main

import (
	"context"
)

func (cli *commandLine) reconcile() error {
	n, err := cli.enrollRepo.ReconcileEnrolledCounts(context.Background())
	if err != nil {
		return err
	}
	logger.Printf("%d course(s) had a drifted enrolled_count", n)
	return nil
}
