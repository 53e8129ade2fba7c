package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-booking-backend/internal/domain"
	"github.com/tbourn/go-booking-backend/internal/observability"
	"github.com/tbourn/go-booking-backend/internal/repo"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users mirrored from the identity service",
}

var (
	userID       string
	userName     string
	userEmail    string
	userProvider bool
)

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a client or provider",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if strings.TrimSpace(userName) == "" || strings.TrimSpace(userEmail) == "" {
			return errors.New("--name and --email are required")
		}
		rt, err := setup(cmd.Context(), observability.ProcessAPI)
		if err != nil {
			return err
		}
		defer rt.close(context.Background())

		u := &domain.User{
			ID:       strings.TrimSpace(userID),
			Name:     strings.TrimSpace(userName),
			Email:    strings.ToLower(strings.TrimSpace(userEmail)),
			Provider: userProvider,
		}
		if err := repo.CreateUser(cmd.Context(), rt.db, u); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), u.ID)
		return nil
	},
}

func init() {
	userAddCmd.Flags().StringVar(&userID, "id", "", "user id (generated when empty)")
	userAddCmd.Flags().StringVar(&userName, "name", "", "display name")
	userAddCmd.Flags().StringVar(&userEmail, "email", "", "contact email")
	userAddCmd.Flags().BoolVar(&userProvider, "provider", false, "the user offers bookable slots")

	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(userCmd)
}
