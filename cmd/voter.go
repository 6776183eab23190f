package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/facevote/internal/config"
	"github.com/kozaktomas/facevote/internal/database/postgres"
	"github.com/kozaktomas/facevote/internal/faceengine"
	"github.com/kozaktomas/facevote/internal/facematch"
)

var voterCmd = &cobra.Command{
	Use:   "voter",
	Short: "Manage the voter roll",
}

var voterAddCmd = &cobra.Command{
	Use:   "add <matric>",
	Short: "Add a single matric number to the voter roll",
	Args:  cobra.ExactArgs(1),
	RunE:  runVoterAdd,
}

var voterImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import matric numbers from a file, one per line",
	Args:  cobra.ExactArgs(1),
	RunE:  runVoterImport,
}

var voterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered voters",
	RunE:  runVoterList,
}

var voterEnrollCmd = &cobra.Command{
	Use:   "enroll <matric> <image>",
	Short: "Enroll a voter face from a reference photo",
	Args:  cobra.ExactArgs(2),
	RunE:  runVoterEnroll,
}

func init() {
	rootCmd.AddCommand(voterCmd)
	voterCmd.AddCommand(voterAddCmd)
	voterCmd.AddCommand(voterImportCmd)
	voterCmd.AddCommand(voterListCmd)
	voterCmd.AddCommand(voterEnrollCmd)
}

func runVoterAdd(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	pool, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	matric := facematch.NormalizeIdentity(args[0])
	if matric == "" {
		return fmt.Errorf("matric must not be empty")
	}

	if err := postgres.NewVoterRepository(pool).Add(context.Background(), matric); err != nil {
		return fmt.Errorf("failed to add voter: %w", err)
	}
	fmt.Printf("Added %s to the voter roll\n", matric)
	return nil
}

func runVoterImport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	pool, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open roll file: %w", err)
	}
	defer file.Close()

	var matrics []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		matric := facematch.NormalizeIdentity(scanner.Text())
		if matric != "" {
			matrics = append(matrics, matric)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read roll file: %w", err)
	}
	if len(matrics) == 0 {
		return fmt.Errorf("no matric numbers found in %s", args[0])
	}

	bar := progressbar.NewOptions(len(matrics),
		progressbar.OptionSetDescription("Importing voters"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("voters"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	voters := postgres.NewVoterRepository(pool)
	ctx := context.Background()
	var failed int
	for _, matric := range matrics {
		if err := voters.Add(ctx, matric); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "\nfailed to add %s: %v\n", matric, err)
		}
		bar.Add(1)
	}
	fmt.Println()

	fmt.Printf("Imported %d voters", len(matrics)-failed)
	if failed > 0 {
		fmt.Printf(" (%d failed)", failed)
	}
	fmt.Println()
	return nil
}

func runVoterList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	pool, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	voters, err := postgres.NewVoterRepository(pool).List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list voters: %w", err)
	}

	for _, v := range voters {
		fmt.Printf("%s\t%s\n", v.Matric, v.RegisteredAt.Format("2006-01-02 15:04"))
	}
	fmt.Printf("%d voters on the roll\n", len(voters))
	return nil
}

func runVoterEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	pool, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	matric := facematch.NormalizeIdentity(args[0])
	image, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	encodings := postgres.NewEncodingRepository(pool)
	engine := faceengine.NewClient(cfg.FaceEngine.URL)
	verifier := facematch.NewVerifier(engine, encodings, cfg.Verify.Threshold)

	ctx := context.Background()
	if err := verifier.RegisterVoter(ctx, matric, image); err != nil {
		return fmt.Errorf("failed to enroll face: %w", err)
	}
	if err := postgres.NewVoterRepository(pool).Add(ctx, matric); err != nil {
		return fmt.Errorf("failed to add voter: %w", err)
	}

	fmt.Printf("Enrolled face for %s\n", matric)
	return nil
}
