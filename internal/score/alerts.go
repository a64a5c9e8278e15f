package score

import "fmt"

// Alert severities.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
	SeverityPositive = "positive"
)

// Alert flags a notable holder-distribution condition on a token.
type Alert struct {
	Mint     string `json:"mint"`
	Severity string `json:"severity"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}

// Alert thresholds.
const (
	alertTop1Critical  = 20.0
	alertGiniCritical  = 0.9
	alertBotWarning    = 0.5
	alertSmartPositive = 0.1
	alertScorePositive = 250
)

// EvaluateAlerts derives alerts from a scored snapshot. Critical
// conditions flag concentration risk, warnings flag bot domination,
// positives flag unusually healthy holder bases.
func EvaluateAlerts(mint string, in HolderInputs, total int) []Alert {
	var alerts []Alert

	if in.Top1Pct > alertTop1Critical {
		alerts = append(alerts, Alert{
			Mint: mint, Severity: SeverityCritical, Kind: "concentration",
			Message: fmt.Sprintf("top 1%% of holders control %.1f%% of supply", in.Top1Pct),
		})
	}
	if in.Gini > alertGiniCritical {
		alerts = append(alerts, Alert{
			Mint: mint, Severity: SeverityCritical, Kind: "gini",
			Message: fmt.Sprintf("gini coefficient %.2f indicates extreme concentration", in.Gini),
		})
	}
	if in.BotRatio > alertBotWarning {
		alerts = append(alerts, Alert{
			Mint: mint, Severity: SeverityWarning, Kind: "bots",
			Message: fmt.Sprintf("%.0f%% of sampled wallets look automated", in.BotRatio*100),
		})
	}
	if in.SmartMoneyRatio > alertSmartPositive {
		alerts = append(alerts, Alert{
			Mint: mint, Severity: SeverityPositive, Kind: "smart-money",
			Message: fmt.Sprintf("%.0f%% of sampled wallets are established traders", in.SmartMoneyRatio*100),
		})
	}
	if total > alertScorePositive {
		alerts = append(alerts, Alert{
			Mint: mint, Severity: SeverityPositive, Kind: "holder-score",
			Message: fmt.Sprintf("holder score %d", total),
		})
	}
	return alerts
}
