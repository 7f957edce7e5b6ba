// Command convictionctl scores one wallet's conviction on demand: it reads
// the wallet's on-chain positions from the store and its Polymarket bets
// (or canned demo bets), runs the conviction engine, and prints the result
// as JSON. It exists for operators and the out-of-process MCP adapter to
// shell out to rather than embedding the engine in the read API, which
// keeps a fixed route surface that conviction scoring isn't part of.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/cortexlabs/cortexd/internal/config"
	"github.com/cortexlabs/cortexd/internal/conviction"
	"github.com/cortexlabs/cortexd/internal/domain"
	"github.com/cortexlabs/cortexd/internal/metrics"
	"github.com/cortexlabs/cortexd/internal/provider/polymarket"
	"github.com/cortexlabs/cortexd/internal/store"
	"github.com/cortexlabs/cortexd/pkg/persistence"
)

// betsFetcher is the subset Client/DemoClient share, matched structurally so
// convictionctl doesn't care which one it got.
type betsFetcher interface {
	Positions(ctx context.Context, address string) ([]domain.PredictionMarketBet, error)
}

// bettorLister is the Client-only surface -market needs; DemoClient has no
// traders endpoint to page, so -market against demo data just scans nothing.
type bettorLister interface {
	Bettors(ctx context.Context, marketSlug string) []string
}

// storeLookup adapts the transaction store into conviction.PositionLookup,
// letting DetectInformedTraders reuse the same DerivePositions path the
// per-wallet scoring in main does.
type storeLookup struct {
	store *store.Store
}

func (s storeLookup) Positions(ctx context.Context, wallet string) ([]domain.Position, error) {
	txs, err := s.store.ListTransactions(ctx, wallet)
	if err != nil {
		return nil, err
	}
	return metrics.DerivePositions(wallet, txs), nil
}

func main() {
	configPath := flag.String("config", os.Getenv("CORTEX_CONFIG_FILE"), "path to a config YAML file (optional)")
	wallet := flag.String("wallet", "", "Solana wallet address to score")
	market := flag.String("market", "", "Polymarket market slug: scan its bettors for informed-trader signal instead of scoring -wallet")
	minConviction := flag.Float64("min-conviction", 0.5, "minimum per-bettor alignment strength to count as an informed trader, with -market")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("convictionctl: load config: %v", err)
	}

	st, err := store.Open(cfg.Database.URL)
	if err != nil {
		log.Fatalf("convictionctl: open store: %v", err)
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var bets betsFetcher
	if cfg.DemoMode {
		svc := persistence.NewJSONFileService("data/demo")
		bets = polymarket.NewDemoClient(svc)
	} else {
		bets = polymarket.NewClient(cfg.Polymarket.GammaBaseURL, cfg.Polymarket.CLOBBaseURL)
	}

	if strings.TrimSpace(*market) != "" {
		runMarketScan(ctx, *market, bets, st, *minConviction)
		return
	}

	if strings.TrimSpace(*wallet) == "" {
		log.Fatalf("convictionctl: one of -wallet or -market is required")
	}

	txs, err := st.ListTransactions(ctx, *wallet)
	if err != nil {
		log.Fatalf("convictionctl: list transactions: %v", err)
	}
	positions := metrics.DerivePositions(*wallet, txs)

	polyBets, err := bets.Positions(ctx, *wallet)
	if err != nil {
		log.Fatalf("convictionctl: fetch polymarket positions: %v", err)
	}

	result, err := conviction.Calculate(positions, polyBets)
	if err != nil {
		printEnvelope(*wallet, 0, "low", err.Error(), nil)
		return
	}

	printEnvelope(*wallet, result.Score, string(result.Confidence), result.Interpretation, result.Signals)
}

// runMarketScan walks a market's bettor list, looking for addresses whose
// on-chain DeFi positions already align with their bet, and prints the
// aggregate read rather than a per-wallet score.
func runMarketScan(ctx context.Context, market string, bets betsFetcher, st *store.Store, minConviction float64) {
	lister, ok := bets.(bettorLister)
	if !ok {
		log.Fatalf("convictionctl: polymarket client does not support bettor scans")
	}

	var marketBets []domain.PredictionMarketBet
	for _, addr := range lister.Bettors(ctx, market) {
		walletBets, err := bets.Positions(ctx, addr)
		if err != nil {
			continue
		}
		for _, b := range walletBets {
			if b.Status == domain.MarketClosed {
				continue
			}
			marketBets = append(marketBets, b)
		}
	}

	traders, err := conviction.DetectInformedTraders(ctx, marketBets, storeLookup{store: st}, nil, minConviction)
	if err != nil {
		log.Fatalf("convictionctl: detect informed traders: %v", err)
	}
	aggregate := conviction.SummarizeInformedTraders(traders)

	out, err := json.MarshalIndent(map[string]any{
		"market":          market,
		"minConviction":   minConviction,
		"informedTraders": traders,
		"direction":       aggregate.Direction,
		"alignmentPct":    aggregate.AlignmentPct,
		"confidence":      aggregate.Confidence,
	}, "", "  ")
	if err != nil {
		log.Fatalf("convictionctl: marshal result: %v", err)
	}
	fmt.Println(string(out))
}

type signalView struct {
	Type        domain.SignalType `json:"type"`
	Strength    float64           `json:"strength"`
	Description string            `json:"description"`
}

type envelope struct {
	Wallet         string       `json:"wallet"`
	Score          float64      `json:"score"`
	Confidence     string       `json:"confidence"`
	Interpretation string       `json:"interpretation"`
	Signals        []signalView `json:"signals"`
}

func printEnvelope(wallet string, score float64, confidence, interpretation string, signals []domain.ConvictionSignal) {
	views := make([]signalView, 0, len(signals))
	for _, s := range signals {
		views = append(views, signalView{Type: s.Type, Strength: s.Strength, Description: s.Description})
	}
	out, err := json.MarshalIndent(envelope{
		Wallet:         wallet,
		Score:          score,
		Confidence:     confidence,
		Interpretation: interpretation,
		Signals:        views,
	}, "", "  ")
	if err != nil {
		log.Fatalf("convictionctl: marshal result: %v", err)
	}
	fmt.Println(string(out))
}
