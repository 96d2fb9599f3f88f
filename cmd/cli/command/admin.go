package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"appgambit/database"
	"appgambit/internal/microservices/http-api/models"
	"appgambit/internal/microservices/http-api/repository"
)

// createAdminCmd creates an administrator, or promotes an existing account
// with the same username.
var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create or promote an administrator account",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if len(password) < 8 {
			return errors.New("password must be at least 8 characters")
		}

		db, _, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close(db)

		user, err := database.EnsureAdmin(db, username, email, password)
		if err != nil {
			return fmt.Errorf("create admin failed: %w", err)
		}
		fmt.Println("✓ Administrator ready")
		fmt.Printf("UserID: %s\n", user.ID)
		fmt.Printf("Username: %s\n", user.Username)
		return nil
	},
}

// setRoleCmd changes the role of an existing user by username.
var setRoleCmd = &cobra.Command{
	Use:   "set-role <username> <user|admin>",
	Short: "Change a user's role",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		username, role := args[0], args[1]
		if role != models.RoleUser && role != models.RoleAdmin {
			return fmt.Errorf("role must be %q or %q", models.RoleUser, models.RoleAdmin)
		}

		db, _, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close(db)

		user, err := setRole(cmd.Context(), db, username, role)
		if err != nil {
			return err
		}
		fmt.Printf("✓ %s is now %s\n", user.Username, role)
		return nil
	},
}

// setRole changes a user's role and revokes their refresh tokens, so sessions
// carrying the old role must sign in again.
func setRole(ctx context.Context, db *gorm.DB, username, role string) (*models.User, error) {
	users := repository.NewUserRepository(db)
	user, err := users.FindByUsername(ctx, username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %q not found", username)
	}
	if err != nil {
		return nil, err
	}
	if err := users.UpdateRole(ctx, user.ID, role); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	if err := repository.NewRefreshTokenRepository(db).RevokeAllForUser(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("revoke sessions: %w", err)
	}
	return user, nil
}

func init() {
	createAdminCmd.Flags().StringP("username", "u", "admin", "Username")
	createAdminCmd.Flags().StringP("email", "e", "", "Email address")
	createAdminCmd.Flags().StringP("password", "p", "", "Password (min 8 characters)")
	createAdminCmd.MarkFlagRequired("email")
	createAdminCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(createAdminCmd, setRoleCmd)
}
