// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package dispatch

import (
	"fmt"
	"path/filepath"

	"github.com/apparentlymart/go-shquot/shquot"
	"github.com/spf13/afero"
)

// Request is the payload delivered to a compute-node agent. The agent runs
// in the global zone; Zone, when set, names the zone to enter first.
type Request struct {
	Kind string `json:"kind"` // "command", "get" or "put"
	Zone string `json:"zone,omitempty"`

	// Script is the shell command for "command" requests, already wrapped
	// for zone entry where needed.
	Script string `json:"script,omitempty"`

	// Path is the remote file for "get" and the destination directory for
	// "put".
	Path string `json:"path,omitempty"`

	// Data is the file content for "put".
	Data []byte `json:"data,omitempty"`
}

// Reply is the agent's answer to a request.
type Reply struct {
	ExitStatus int    `json:"exit_status"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`

	// Data is the fetched file content for "get" replies.
	Data []byte `json:"data,omitempty"`
}

// Operation is one dispatchable action, expanded per target.
type Operation interface {
	// Describe summarizes the operation for logs.
	Describe() string

	// Request builds the agent payload for one target.
	Request(t Target) (*Request, error)

	// Complete consumes a successful reply, performing any local side
	// effect (writing a fetched file), and returns the exit status plus
	// output for the result stream.
	Complete(t Target, rep *Reply) (*Reply, error)
}

// CommandOp runs a shell command on each target.
type CommandOp struct {
	Script string
}

func (op *CommandOp) Describe() string { return fmt.Sprintf("command %q", op.Script) }

func (op *CommandOp) Request(t Target) (*Request, error) {
	script := op.Script
	if !t.GlobalZone() {
		// the agent executes in the global zone; entering the target zone
		// requires requoting the whole command line
		script = shquot.POSIXShell([]string{
			"/usr/sbin/zlogin", t.InstanceID, "/bin/bash", "-c", op.Script,
		})
	}
	return &Request{Kind: "command", Zone: t.InstanceID, Script: script}, nil
}

func (op *CommandOp) Complete(_ Target, rep *Reply) (*Reply, error) {
	return rep, nil
}

// GetOp fetches one remote file from each target into LocalDir, named
// <ident>.<basename>. Colliding names across runs overwrite.
type GetOp struct {
	RemotePath string
	LocalDir   string
	Fs         afero.Fs
}

func (op *GetOp) Describe() string { return fmt.Sprintf("get %s", op.RemotePath) }

func (op *GetOp) Request(t Target) (*Request, error) {
	return &Request{Kind: "get", Zone: t.InstanceID, Path: op.RemotePath}, nil
}

func (op *GetOp) Complete(t Target, rep *Reply) (*Reply, error) {
	if rep.ExitStatus != 0 {
		return rep, nil
	}
	name := filepath.Join(op.LocalDir, t.Ident()+"."+filepath.Base(op.RemotePath))
	if err := afero.WriteFile(op.Fs, name, rep.Data, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", name, err)
	}
	return rep, nil
}

// PutOp pushes one local file into RemoteDir on each target. The file is
// read once, up front, so every target receives identical content.
type PutOp struct {
	RemoteDir string
	basename  string
	data      []byte
}

// NewPutOp reads localPath and returns the operation carrying its content.
func NewPutOp(fs afero.Fs, localPath, remoteDir string) (*PutOp, error) {
	data, err := afero.ReadFile(fs, localPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", localPath, err)
	}
	return &PutOp{
		RemoteDir: remoteDir,
		basename:  filepath.Base(localPath),
		data:      data,
	}, nil
}

func (op *PutOp) Describe() string {
	return fmt.Sprintf("put %s (%d bytes)", filepath.Join(op.RemoteDir, op.basename), len(op.data))
}

func (op *PutOp) Request(t Target) (*Request, error) {
	return &Request{
		Kind: "put",
		Zone: t.InstanceID,
		Path: filepath.Join(op.RemoteDir, op.basename),
		Data: op.data,
	}, nil
}

func (op *PutOp) Complete(_ Target, rep *Reply) (*Reply, error) {
	return rep, nil
}
