package chain

// faucetABI covers the faucet contract surface the service uses: cooldown
// timestamps and the blacklist for eligibility, token config for per-token
// amounts, and the two claim entrypoints.
const faucetABI = `[
	{"type":"function","name":"isBlacklisted","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"type":"bool"}]},
	{"type":"function","name":"lastEthClaim","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"type":"uint256"}]},
	{"type":"function","name":"lastTokenClaim","stateMutability":"view","inputs":[{"name":"account","type":"address"},{"name":"token","type":"address"}],"outputs":[{"type":"uint256"}]},
	{"type":"function","name":"tokenConfig","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"amount","type":"uint256"},{"name":"cooldown","type":"uint256"},{"name":"active","type":"bool"}]},
	{"type":"function","name":"ethAmount","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
	{"type":"function","name":"claimEth","stateMutability":"nonpayable","inputs":[{"name":"recipient","type":"address"}],"outputs":[]},
	{"type":"function","name":"claimToken","stateMutability":"nonpayable","inputs":[{"name":"recipient","type":"address"},{"name":"token","type":"address"}],"outputs":[]}
]`

// erc20ABI is the metadata subset used to prefill registry entries.
const erc20ABI = `[
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"type":"string"}]},
	{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"type":"string"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"type":"uint8"}]}
]`
