// registro-rules is a small administration tool for recurring rules: the
// entry path that creates and pauses rules lives in the interactive
// application, and this binary covers the same operations from the shell
// for seeding and operations work.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"registro/internal/cli"
	"registro/internal/core"
	"registro/internal/log"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx := context.Background()

	switch os.Args[1] {
	case "add":
		addRule(ctx, repo, os.Args[2:])
	case "list":
		listRules(ctx, repo, os.Args[2:])
	case "deactivate":
		setActive(ctx, repo, os.Args[2:], false)
	case "activate":
		setActive(ctx, repo, os.Args[2:], true)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: registro-rules <command> [flags]

commands:
  add         create a recurring rule
  list        list a user's rules
  deactivate  pause a rule
  activate    resume a rule`)
}

type ruleRepository interface {
	CreateRule(ctx context.Context, rule core.RecurringRule) (int64, error)
	ListRules(ctx context.Context, userID int64) ([]core.RecurringRule, error)
	SetRuleActive(ctx context.Context, ruleID int64, active bool) error
}

func addRule(ctx context.Context, repo ruleRepository, args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	user := fs.Int64("user", 0, "owner user id")
	kind := fs.String("kind", "expense", "income or expense")
	amount := fs.String("amount", "", "amount, e.g. 12.50 or 12,50")
	category := fs.String("category", "", "category label")
	frequency := fs.String("frequency", "monthly", "daily, weekly, monthly or yearly")
	start := fs.String("start", "", "start date YYYY-MM-DD")
	end := fs.String("end", "", "optional end date YYYY-MM-DD")
	description := fs.String("description", "", "description")
	_ = fs.Parse(args)

	cents, err := core.ParseDecimalToCents(*amount)
	if err != nil {
		fatalf("invalid amount %q: %v", *amount, err)
	}

	startDate, err := core.ParseDate(*start)
	if err != nil {
		fatalf("invalid start date %q: %v", *start, err)
	}

	var endDate core.Date
	if *end != "" {
		if endDate, err = core.ParseDate(*end); err != nil {
			fatalf("invalid end date %q: %v", *end, err)
		}
	}

	rule := core.RecurringRule{
		UserID:      *user,
		Kind:        core.EntryKind(*kind),
		Amount:      core.Money{Cents: cents},
		Category:    *category,
		Every:       core.Frequency(*frequency),
		StartDate:   startDate,
		NextDueDate: startDate,
		EndDate:     endDate,
		Description: *description,
		IsActive:    true,
	}

	id, err := repo.CreateRule(ctx, rule)
	if err != nil {
		fatalf("create rule: %v", err)
	}
	fmt.Printf("created rule %d\n", id)
}

func listRules(ctx context.Context, repo ruleRepository, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	user := fs.Int64("user", 0, "owner user id")
	_ = fs.Parse(args)

	rules, err := repo.ListRules(ctx, *user)
	if err != nil {
		fatalf("list rules: %v", err)
	}

	for _, r := range rules {
		state := "active"
		if !r.IsActive {
			state = "inactive"
		}
		end := "-"
		if !r.EndDate.IsEmpty() {
			end = r.EndDate.String()
		}
		fmt.Printf("%d\t%s\t%s\t%s\tnext=%s\tend=%s\t%s\t%s\n",
			r.ID, r.Kind, core.FormatEuros(r.Amount.Cents), r.Every,
			r.NextDueDate.String(), end, state, r.Description)
	}
}

func setActive(ctx context.Context, repo ruleRepository, args []string, active bool) {
	fs := flag.NewFlagSet("setactive", flag.ExitOnError)
	id := fs.Int64("id", 0, "rule id")
	_ = fs.Parse(args)

	if err := repo.SetRuleActive(ctx, *id, active); err != nil {
		fatalf("update rule %d: %v", *id, err)
	}
	fmt.Printf("rule %d active=%t\n", *id, active)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
