package chain

import "fmt"

// TxStage identifies where a claim transaction failed.
type TxStage string

const (
	// StageSubmit covers gas estimation and transaction submission; the
	// claim never reached the chain.
	StageSubmit TxStage = "submit"
	// StageConfirm covers the confirmation wait; the transaction was
	// submitted and may still land.
	StageConfirm TxStage = "confirm"
)

// TxError is a claim transaction failure with the failing stage attached.
type TxError struct {
	Stage  TxStage
	Method string
	Reason string
	Err    error
}

func (e *TxError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %s failed: %s", e.Method, e.Stage, e.Reason)
	}
	return fmt.Sprintf("%s %s failed", e.Method, e.Stage)
}

func (e *TxError) Unwrap() error { return e.Err }

// NotConfirmed reports whether the transaction made it to the chain but was
// not confirmed in time or reverted.
func (e *TxError) NotConfirmed() bool { return e.Stage == StageConfirm }
