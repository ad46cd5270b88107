package dashboard

import (
	"strings"

	"github.com/flosch/pongo2/v6"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/refi-pool-dashboard/internal/pool"
	"github.com/quantumauth-io/refi-pool-dashboard/internal/query"
)

// Unavailable is shown in place of a value whose fetch failed.
const Unavailable = "unavailable"

var fragmentTemplate = pongo2.Must(pongo2.FromString(`<section class="pool-dashboard" id="pool-dashboard" data-status="{{ status }}">
  <p>Connected Wallet: <span class="wallet-address">{{ address }}</span></p>
  <p>Pool {{ nativeSymbol }} Balance: <span class="pool-native">{{ native }}</span></p>
  <p>Pool {{ tokenSymbol }} Balance: <span class="pool-token">{{ token }}</span></p>
</section>`))

var textTemplate = pongo2.Must(pongo2.FromString(`{% autoescape off %}Connected Wallet: {{ address }}
Pool {{ nativeSymbol }} Balance: {{ native }}
Pool {{ tokenSymbol }} Balance: {{ token }}
{% endautoescape %}`))

var pageTemplate = pongo2.Must(pongo2.FromString(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{ title }}</title>
  <link rel="stylesheet" href="/static/dashboard.css">
</head>
<body data-chain-id="{{ chainId }}" data-contract="{{ contract }}">
  <main>
    <h1>{{ title }}</h1>
    <div id="dashboard-root">{{ fragment|safe }}</div>
    <div class="actions">
      <button id="connect-button" type="button">Connect Wallet</button>
      <button id="disconnect-button" type="button">Disconnect</button>
      <button id="refresh-button" type="button">Refresh</button>
    </div>
    <p class="network">{{ network }} &middot; {{ contract }}</p>
  </main>
  <script src="/static/dashboard.js"></script>
</body>
</html>`))

// Render projects a view to the dashboard HTML fragment. It never fails on
// missing data: pending values render blank, failed ones as Unavailable.
func Render(v View) string {
	return execute(fragmentTemplate, v.context())
}

// RenderText is Render for a terminal.
func RenderText(v View) string {
	return execute(textTemplate, v.context())
}

// RenderPage wraps the fragment in a full document.
func RenderPage(v View) string {
	ctx := v.context()
	ctx["fragment"] = Render(v)
	ctx["title"] = v.Title
	ctx["network"] = v.Network
	ctx["chainId"] = v.ChainID
	ctx["contract"] = v.ContractAddress
	return execute(pageTemplate, ctx)
}

func execute(tpl *pongo2.Template, ctx pongo2.Context) string {
	out, err := tpl.Execute(ctx)
	if err != nil {
		log.Error("dashboard render failed", "error", err)
		return ""
	}
	return out
}

func (v View) context() pongo2.Context {
	return pongo2.Context{
		"status":       v.Status().String(),
		"address":      v.Address,
		"nativeSymbol": v.NativeSymbol,
		"tokenSymbol":  v.TokenSymbol,
		"native":       nativeText(v.Native),
		"token":        tokenText(v.Pool),
	}
}

// Status folds both reads into one: any error wins over pending.
func (v View) Status() query.Status {
	switch {
	case v.Native.Status == query.StatusError || v.Pool.Status == query.StatusError:
		return query.StatusError
	case v.Native.Pending() || v.Pool.Pending():
		return query.StatusPending
	default:
		return query.StatusSuccess
	}
}

func nativeText(r query.Result[pool.NativeBalance]) string {
	switch r.Status {
	case query.StatusSuccess:
		return r.Data.Formatted
	case query.StatusError:
		return Unavailable
	default:
		return ""
	}
}

// tokenText shows the second poolBalances value as its raw integer.
func tokenText(r query.Result[pool.Balances]) string {
	switch r.Status {
	case query.StatusSuccess:
		if r.Data.Token == nil {
			return ""
		}
		return r.Data.Token.String()
	case query.StatusError:
		return Unavailable
	default:
		return ""
	}
}

// Lines returns the three rendered text lines without trailing newline.
func Lines(v View) []string {
	return strings.Split(strings.TrimRight(RenderText(v), "\n"), "\n")
}
