package http

import (
	"github.com/quantumauth-io/refi-pool-dashboard/internal/dashboard"
	"github.com/quantumauth-io/refi-pool-dashboard/internal/query"
	"github.com/quantumauth-io/refi-pool-dashboard/internal/wallet"
)

type connectReq struct {
	Connector string `json:"connector" binding:"required"`
	Address   string `json:"address"`
}

type connectorRes struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type walletRes struct {
	State      wallet.State   `json:"state"`
	Connectors []connectorRes `json:"connectors"`
}

type nativeRes struct {
	Status    query.Status `json:"status"`
	Formatted string       `json:"formatted,omitempty"`
	Raw       string       `json:"raw,omitempty"`
	Symbol    string       `json:"symbol,omitempty"`
	Error     string       `json:"error,omitempty"`
}

type poolRes struct {
	Status query.Status `json:"status"`
	ETH    string       `json:"eth,omitempty"`
	Token  string       `json:"token,omitempty"`
	Error  string       `json:"error,omitempty"`
}

type balancesRes struct {
	Address   string    `json:"address"`
	Connected bool      `json:"connected"`
	Contract  string    `json:"contract"`
	ChainID   uint64    `json:"chainId"`
	Native    nativeRes `json:"native"`
	Pool      poolRes   `json:"pool"`
	HTML      string    `json:"html"`
}

// liveMessage is pushed to /ws subscribers on every dashboard change.
type liveMessage struct {
	Type      string `json:"type"`
	Status    string `json:"status"`
	Address   string `json:"address"`
	Connected bool   `json:"connected"`
	HTML      string `json:"html"`
}

func newBalancesRes(v dashboard.View) balancesRes {
	res := balancesRes{
		Address:   v.Address,
		Connected: v.Connected,
		Contract:  v.ContractAddress,
		ChainID:   v.ChainID,
		Native:    nativeRes{Status: v.Native.Status},
		Pool:      poolRes{Status: v.Pool.Status},
		HTML:      dashboard.Render(v),
	}

	switch v.Native.Status {
	case query.StatusSuccess:
		res.Native.Formatted = v.Native.Data.Formatted
		res.Native.Symbol = v.Native.Data.Symbol
		if v.Native.Data.Raw != nil {
			res.Native.Raw = v.Native.Data.Raw.String()
		}
	case query.StatusError:
		res.Native.Error = v.Native.Err.Error()
	}

	switch v.Pool.Status {
	case query.StatusSuccess:
		if v.Pool.Data.ETH != nil {
			res.Pool.ETH = v.Pool.Data.ETH.String()
		}
		if v.Pool.Data.Token != nil {
			res.Pool.Token = v.Pool.Data.Token.String()
		}
	case query.StatusError:
		res.Pool.Error = v.Pool.Err.Error()
	}
	return res
}

func newLiveMessage(v dashboard.View) liveMessage {
	return liveMessage{
		Type:      LiveMessageTypeRender,
		Status:    v.Status().String(),
		Address:   v.Address,
		Connected: v.Connected,
		HTML:      dashboard.Render(v),
	}
}
