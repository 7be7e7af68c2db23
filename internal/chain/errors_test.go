package chain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/driplabs/faucet/internal/chain"
)

func TestTxError(t *testing.T) {
	underlying := errors.New("execution reverted")

	submitErr := &chain.TxError{
		Stage:  chain.StageSubmit,
		Method: "claimEth",
		Reason: "Cooldown active",
		Err:    underlying,
	}
	assert.Equal(t, "claimEth submit failed: Cooldown active", submitErr.Error())
	assert.ErrorIs(t, submitErr, underlying)
	assert.False(t, submitErr.NotConfirmed())

	confirmErr := &chain.TxError{Stage: chain.StageConfirm, Method: "claimToken"}
	assert.Equal(t, "claimToken confirm failed", confirmErr.Error())
	assert.True(t, confirmErr.NotConfirmed())
}
