// 文件: cmd/analytics/main.go
// 单次分析命令
//
// 用法:
//
//	analytics -input data/2025-03-10.json -config analytics.yaml
//	analytics -input data/2025-03-10.json -dry-run        只计算并打印排名
//	analytics -input data/2025-03-10.json -no-store -export out/dashboard.json
//	analytics -show                                       已入库的最新排名和预警
//	analytics -show -strategy S1,S2 -limit 10
//	analytics -clear-feed -strategy S1                    清空预警流

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rs/zerolog"

	"strategyscope.com/pkg/config"
	"strategyscope.com/pkg/logger"
	"strategyscope.com/pkg/pipeline"
	"strategyscope.com/pkg/settlement"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML 配置文件")
		input      = flag.String("input", "", "批次 JSON 文件")
		exportPath = flag.String("export", "", "导出文件路径，覆盖配置")
		noStore    = flag.Bool("no-store", false, "不写数据库")
		noEvents   = flag.Bool("no-events", false, "不发事件")
		dryRun     = flag.Bool("dry-run", false, "只计算，不写任何下游")
		show       = flag.Bool("show", false, "读取已入库的排名和预警")
		clearFeed  = flag.Bool("clear-feed", false, "清空 -strategy 指定策略的预警流")
		strategies = flag.String("strategy", "", "策略代码，逗号分隔")
		limit      = flag.Int("limit", 5, "-show 时每个策略的预警条数")
	)
	flag.Parse()

	codes := splitCodes(*strategies)
	if *input == "" && !*show && !*clearFeed || *clearFeed && len(codes) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)
	logger.SetGlobal(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case *show:
		err = showStored(ctx, cfg, log, codes, *limit)
	case *clearFeed:
		err = clearAlertFeed(ctx, cfg, log, codes)
	default:
		err = run(ctx, cfg, log, *input, pipeline.Options{
			SkipStore:  *noStore || *dryRun,
			SkipEvents: *noEvents || *dryRun,
			ExportPath: *exportPath,
		}, *dryRun)
	}
	if err != nil {
		log.Error().Err(err).Msg("analytics failed")
		os.Exit(1)
	}
}

func splitCodes(s string) []string {
	var codes []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			codes = append(codes, c)
		}
	}
	return codes
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger, input string, opts pipeline.Options, dryRun bool) error {
	batch, err := settlement.LoadFile(input)
	if err != nil {
		return err
	}
	log.Info().
		Str("input", input).
		Int("equity", len(batch.Equity)).
		Int("positions", len(batch.Positions)).
		Int("trades", len(batch.Trades)).
		Msg("batch loaded")

	c, err := pipeline.Setup(ctx, cfg, opts, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("close components")
		}
	}()

	var res *pipeline.Result
	if dryRun {
		res, err = c.Runner.Analyze(batch)
	} else {
		res, err = c.Runner.Run(ctx, batch)
	}
	if res != nil {
		printRanking(res)
	}
	return err
}

func printRanking(res *pipeline.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSTRATEGY\tTOTAL\tRETURN\tSHARPE\tMAX_DD\tALERTS\tBEHAVIOR_RISK")
	for _, s := range res.Scores {
		sum := res.Summaries[s.StrategyCode]
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%.2f%%\t%.2f\t%.2f%%\t%d\t%d\n",
			s.Rank, s.StrategyCode, s.TotalScore,
			s.TotalReturn*100, s.SharpeRatio, s.MaxDrawdown*100,
			sum.TotalAlerts, sum.RiskScore)
	}
	_ = w.Flush()
}

// =============================================================================
// 读取已入库结果
// =============================================================================

func showStored(ctx context.Context, cfg config.Config, log zerolog.Logger, codes []string, limit int) error {
	cfg.Export.Path = ""
	c, err := pipeline.Setup(ctx, cfg, pipeline.Options{SkipEvents: true}, log)
	if err != nil {
		return err
	}
	defer c.Close()

	reports, err := c.Report(ctx, codes, limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSTRATEGY\tCALC_DATE\tTOTAL\tRETURN\tSHARPE\tMAX_DD")
	for _, rep := range reports {
		s := rep.Score
		if s == nil {
			fmt.Fprintf(w, "-\t%s\t-\t-\t-\t-\t-\n", rep.Strategy.Code)
			continue
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%.2f%%\t%.2f\t%.2f%%\n",
			s.Rank, rep.Strategy.Code, s.CalcDate, s.TotalScore,
			s.TotalReturn*100, s.SharpeRatio, s.MaxDrawdown*100)
	}
	_ = w.Flush()

	for _, rep := range reports {
		if len(rep.Alerts) == 0 && len(rep.Recent) == 0 {
			continue
		}
		fmt.Printf("\n[%s] 预警 (数据库 %d 条, 预警流 %d 条)\n", rep.Strategy.Code, len(rep.Alerts), len(rep.Recent))
		for _, a := range rep.Alerts {
			fmt.Printf("  %s  %-6s  %s\n", a.TradeDate, a.Severity, a.Description)
		}
	}
	return nil
}

func clearAlertFeed(ctx context.Context, cfg config.Config, log zerolog.Logger, codes []string) error {
	cfg.Export.Path = ""
	c, err := pipeline.Setup(ctx, cfg, pipeline.Options{SkipStore: true, SkipEvents: true}, log)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.ClearFeed(ctx, codes...); err != nil {
		return err
	}
	log.Info().Strs("strategies", codes).Msg("alert feed cleared")
	return nil
}
