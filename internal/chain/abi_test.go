package chain

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFaucetABI(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(faucetABI))
	require.NoError(t, err)

	for _, name := range []string{
		"isBlacklisted",
		"lastEthClaim",
		"lastTokenClaim",
		"tokenConfig",
		"ethAmount",
		"claimEth",
		"claimToken",
	} {
		_, ok := parsed.Methods[name]
		assert.True(t, ok, "method %s missing", name)
	}

	// tokenConfig returns (amount, cooldown, active).
	assert.Len(t, parsed.Methods["tokenConfig"].Outputs, 3)
	// Claim entrypoints are state-changing, not views.
	assert.False(t, parsed.Methods["claimEth"].IsConstant())
	assert.False(t, parsed.Methods["claimToken"].IsConstant())
}

func TestERC20ABI(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	require.NoError(t, err)

	for _, name := range []string{"symbol", "name", "decimals"} {
		_, ok := parsed.Methods[name]
		assert.True(t, ok, "method %s missing", name)
	}
}
