package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facevote/internal/config"
	"github.com/kozaktomas/facevote/internal/database/postgres"
	"github.com/kozaktomas/facevote/internal/faceengine"
	"github.com/kozaktomas/facevote/internal/facematch"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage election administrators",
}

var adminAddCmd = &cobra.Command{
	Use:   "add <chat-id>",
	Short: "Register a chat ID as an admin",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminAdd,
}

var adminRemoveCmd = &cobra.Command{
	Use:   "remove <chat-id>",
	Short: "Remove an admin",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminRemove,
}

var adminListCmd = &cobra.Command{
	Use:   "list",
	Short: "List admins",
	RunE:  runAdminList,
}

var adminEnrollCmd = &cobra.Command{
	Use:   "enroll <chat-id> <image>",
	Short: "Enroll an admin face from a reference photo",
	Args:  cobra.ExactArgs(2),
	RunE:  runAdminEnroll,
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminAddCmd)
	adminCmd.AddCommand(adminRemoveCmd)
	adminCmd.AddCommand(adminListCmd)
	adminCmd.AddCommand(adminEnrollCmd)
}

func runAdminAdd(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	pool, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.NewAdminRepository(pool).Add(context.Background(), args[0]); err != nil {
		return fmt.Errorf("failed to add admin: %w", err)
	}
	fmt.Printf("Added admin %s\n", args[0])
	return nil
}

func runAdminRemove(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	pool, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.NewAdminRepository(pool).Remove(context.Background(), args[0]); err != nil {
		return fmt.Errorf("failed to remove admin: %w", err)
	}
	fmt.Printf("Removed admin %s\n", args[0])
	return nil
}

func runAdminList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	pool, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	admins, err := postgres.NewAdminRepository(pool).List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list admins: %w", err)
	}

	for _, a := range admins {
		fmt.Printf("%s\t%s\n", a.ChatID, a.RegisteredAt.Format("2006-01-02 15:04"))
	}
	fmt.Printf("%d admins\n", len(admins))
	return nil
}

func runAdminEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	pool, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := context.Background()
	exists, err := postgres.NewAdminRepository(pool).Exists(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to check admin: %w", err)
	}
	if !exists {
		return fmt.Errorf("admin %s is not registered, add them first", args[0])
	}

	image, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	encodings := postgres.NewEncodingRepository(pool)
	engine := faceengine.NewClient(cfg.FaceEngine.URL)
	verifier := facematch.NewVerifier(engine, encodings, cfg.Verify.Threshold)

	if err := verifier.RegisterAdmin(ctx, args[0], image); err != nil {
		return fmt.Errorf("failed to enroll face: %w", err)
	}

	fmt.Printf("Enrolled face for admin %s\n", args[0])
	return nil
}
