package ui

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// approvalRequest is an account access request waiting for a y/n answer.
type approvalRequest struct {
	account common.Address
	reply   chan bool
}

// ApprovalPrompt routes account access requests from the wallet into the
// app, which renders them and sends back the answer.
type ApprovalPrompt struct {
	requests chan approvalRequest
}

// NewApprovalPrompt creates an approval prompt.
func NewApprovalPrompt() *ApprovalPrompt {
	return &ApprovalPrompt{requests: make(chan approvalRequest)}
}

// Approve blocks until the user answers or ctx ends. It has the shape of
// wallet.Approver.
func (a *ApprovalPrompt) Approve(ctx context.Context, account common.Address) (bool, error) {
	req := approvalRequest{account: account, reply: make(chan bool, 1)}
	select {
	case a.requests <- req:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case ok := <-req.reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
