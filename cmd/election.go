package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facevote/internal/config"
	"github.com/kozaktomas/facevote/internal/database/postgres"
	"github.com/kozaktomas/facevote/internal/election"
)

var electionCmd = &cobra.Command{
	Use:   "election",
	Short: "Manage elections and candidates",
}

var electionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an election with a voting window",
	RunE:  runElectionCreate,
}

var electionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List elections with their current status",
	RunE:  runElectionList,
}

var electionAddCandidateCmd = &cobra.Command{
	Use:   "add-candidate <election-id>",
	Short: "Add a candidate to a pending election",
	Args:  cobra.ExactArgs(1),
	RunE:  runElectionAddCandidate,
}

var electionResultsCmd = &cobra.Command{
	Use:   "results <election-id>",
	Short: "Print the tally of an ended election",
	Args:  cobra.ExactArgs(1),
	RunE:  runElectionResults,
}

func init() {
	rootCmd.AddCommand(electionCmd)
	electionCmd.AddCommand(electionCreateCmd)
	electionCmd.AddCommand(electionListCmd)
	electionCmd.AddCommand(electionAddCandidateCmd)
	electionCmd.AddCommand(electionResultsCmd)

	electionCreateCmd.Flags().String("title", "", "Election title")
	electionCreateCmd.Flags().String("start", "", "Voting window start (RFC3339)")
	electionCreateCmd.Flags().String("end", "", "Voting window end (RFC3339)")
	electionCreateCmd.MarkFlagRequired("title")
	electionCreateCmd.MarkFlagRequired("start")
	electionCreateCmd.MarkFlagRequired("end")

	electionAddCandidateCmd.Flags().String("name", "", "Candidate name")
	electionAddCandidateCmd.Flags().String("position", "", "Contested position")
	electionAddCandidateCmd.Flags().String("image", "", "Candidate photo path")
	electionAddCandidateCmd.MarkFlagRequired("name")
	electionAddCandidateCmd.MarkFlagRequired("position")
}

// electionService wires the election service against PostgreSQL for CLI use.
func electionService(pool *postgres.Pool) *election.Service {
	return election.NewService(
		postgres.NewElectionRepository(pool),
		postgres.NewCandidateRepository(pool),
		postgres.NewVoteRepository(pool),
	)
}

func runElectionCreate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	pool, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	start, err := time.Parse(time.RFC3339, mustGetString(cmd, "start"))
	if err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, mustGetString(cmd, "end"))
	if err != nil {
		return fmt.Errorf("invalid --end: %w", err)
	}

	e, err := electionService(pool).Create(context.Background(), mustGetString(cmd, "title"), start, end)
	if err != nil {
		return fmt.Errorf("failed to create election: %w", err)
	}

	fmt.Printf("Created election %s\n", e.ID)
	fmt.Printf("  Title: %s\n", e.Title)
	fmt.Printf("  Window: %s — %s\n", e.StartTime.Format(time.RFC3339), e.EndTime.Format(time.RFC3339))
	return nil
}

func runElectionList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	pool, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	views, err := electionService(pool).List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list elections: %w", err)
	}

	for _, v := range views {
		fmt.Printf("%s\t%-8s\t%s\n", v.ID, v.Status, v.Title)
	}
	fmt.Printf("%d elections\n", len(views))
	return nil
}

func runElectionAddCandidate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	pool, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	c, err := electionService(pool).AddCandidate(
		context.Background(),
		args[0],
		mustGetString(cmd, "name"),
		mustGetString(cmd, "position"),
		mustGetString(cmd, "image"),
	)
	if err != nil {
		return fmt.Errorf("failed to add candidate: %w", err)
	}

	fmt.Printf("Added candidate %s (%s) for %s\n", c.Name, c.ID, c.Position)
	return nil
}

func runElectionResults(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	pool, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	counts, err := electionService(pool).Results(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to tally results: %w", err)
	}

	position := ""
	for _, c := range counts {
		if c.Position != position {
			position = c.Position
			fmt.Printf("\n%s\n", position)
		}
		fmt.Printf("  %-30s %d\n", c.Name, c.Count)
	}
	fmt.Println()
	return nil
}
