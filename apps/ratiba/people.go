package main

import (
	"context"
	"fmt"

	"github.com/trezcool/ratiba/core/metadata"
)

func (cli *commandLine) addStudent(ctx context.Context, ns metadata.NewStudent) error {
	msg, err := cli.meta.CreateStudent(ctx, ns)
	return cli.created(msg, err)
}

func (cli *commandLine) addFaculty(ctx context.Context, nf metadata.NewFaculty) error {
	msg, err := cli.meta.CreateFaculty(ctx, nf)
	return cli.created(msg, err)
}

// created prints the confirmation; once the record exists upstream, a failed reload is only a warning.
func (cli *commandLine) created(msg string, err error) error {
	if err != nil && msg == "" {
		return err
	}
	fmt.Fprintln(cli.out, msg)
	if err != nil {
		cli.warn(err)
	}
	return nil
}
