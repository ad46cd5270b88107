package constants

const (
	AppName     = "refi-pool"
	SessionFile = "wallet_session.json"
	ConfigFile  = "config.yaml"

	SchemaV1      = 1
	FilePerm      = 0o600
	DirectoryPerm = 0o700

	// Placeholder until the DonationPool deployment address is known.
	DonationPoolAddr = "0x0000000000000000000000000000000000000000"

	PoolBalancesFunction = "poolBalances"

	DashboardTitle = "ReFi Donation Pool"
)
