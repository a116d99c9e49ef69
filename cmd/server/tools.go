package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/iliyamo/mapit/internal/config"
	"github.com/iliyamo/mapit/internal/database"
	"github.com/iliyamo/mapit/internal/queue"
	"github.com/iliyamo/mapit/internal/service"
	"github.com/iliyamo/mapit/internal/utils"
)

var migrateFlags = map[string]cobraflags.Flag{
	databaseURLFlag: &cobraflags.StringFlag{
		Name:  databaseURLFlag,
		Value: "",
		Usage: "PostgreSQL connection string (overrides DATABASE_URL)",
	},
}

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema and seed the default packages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := databaseURL(migrateFlags[databaseURLFlag].GetString())
			if err != nil {
				return err
			}
			db, err := database.Open(cmd.Context(), url, 2)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			if err := database.SeedPackages(cmd.Context(), db, database.DefaultPackages); err != nil {
				return err
			}
			fmt.Println("schema applied")
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, migrateFlags)
	return cmd
}

const (
	amqpURLFlag  = "amqp-url"
	logFileFlag  = "log-file"
	logLevelFlag = "log-level"
)

var consumeFlags = map[string]cobraflags.Flag{
	amqpURLFlag: &cobraflags.StringFlag{
		Name:  amqpURLFlag,
		Value: "",
		Usage: "RabbitMQ URL (overrides RABBITMQ_URL)",
	},
	logFileFlag: &cobraflags.StringFlag{
		Name:  logFileFlag,
		Value: "logs/orders.log",
		Usage: "File that completed orders are appended to",
	},
	logLevelFlag: &cobraflags.StringFlag{
		Name:  logLevelFlag,
		Value: "info",
		Usage: "Log level (debug, info, warn, error)",
	},
}

func newConsumeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Append completed orders from RabbitMQ to the order log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			url := consumeFlags[amqpURLFlag].GetString()
			if url == "" {
				url = config.BrokerURL()
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c := &queue.Consumer{
				URL:    url,
				Log:    &queue.OrderLog{Path: consumeFlags[logFileFlag].GetString()},
				Logger: newLogger(consumeFlags[logLevelFlag].GetString()),
			}
			return c.Run(ctx)
		},
	}
	cobraflags.RegisterMap(cmd, consumeFlags)
	return cmd
}

const (
	firstNameFlag = "first-name"
	lastNameFlag  = "last-name"
	emailFlag     = "email"
	passwordFlag  = "password"
)

var adminFlags = map[string]cobraflags.Flag{
	databaseURLFlag: &cobraflags.StringFlag{
		Name:  databaseURLFlag,
		Value: "",
		Usage: "PostgreSQL connection string (overrides DATABASE_URL)",
	},
	firstNameFlag: &cobraflags.StringFlag{Name: firstNameFlag, Usage: "Admin first name"},
	lastNameFlag:  &cobraflags.StringFlag{Name: lastNameFlag, Usage: "Admin last name"},
	emailFlag:     &cobraflags.StringFlag{Name: emailFlag, Usage: "Admin email (required)"},
	passwordFlag:  &cobraflags.StringFlag{Name: passwordFlag, Usage: "Admin password; read from stdin when empty"},
}

func newAdminCommand() *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Manage dashboard administrators",
	}
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an administrator account",
		RunE:  adminCreateCommand,
	}
	cobraflags.RegisterMap(create, adminFlags)
	admin.AddCommand(create)
	return admin
}

func adminCreateCommand(cmd *cobra.Command, _ []string) error {
	url, err := databaseURL(adminFlags[databaseURLFlag].GetString())
	if err != nil {
		return err
	}
	password := adminFlags[passwordFlag].GetString()
	if password == "" {
		if password, err = readLine(cmd, "password: "); err != nil {
			return err
		}
	}
	db, err := database.Open(cmd.Context(), url, 2)
	if err != nil {
		return err
	}
	defer db.Close()

	cost, _ := strconv.Atoi(os.Getenv("BCRYPT_COST"))
	if cost == 0 {
		cost = 10
	}
	svc := service.NewAdminService(db, cost, newLogger("warn"))
	a, err := svc.Create(cmd.Context(),
		adminFlags[firstNameFlag].GetString(),
		adminFlags[lastNameFlag].GetString(),
		adminFlags[emailFlag].GetString(),
		password,
	)
	if err != nil {
		return err
	}
	fmt.Printf("admin %d created (%s)\n", a.ID, a.Email)
	return nil
}

var hashFlags = map[string]cobraflags.Flag{
	"cost": &cobraflags.StringFlag{Name: "cost", Value: "10", Usage: "bcrypt cost"},
}

func newHashPasswordCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash of a password",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cost, err := strconv.Atoi(hashFlags["cost"].GetString())
			if err != nil {
				return fmt.Errorf("invalid --cost: %w", err)
			}
			var plain string
			if len(args) == 1 {
				plain = args[0]
			} else if plain, err = readLine(cmd, "password: "); err != nil {
				return err
			}
			hash, err := utils.HashPassword(plain, cost)
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, hashFlags)
	return cmd
}

func readLine(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		if err == nil {
			err = errors.New("empty input")
		}
		return "", err
	}
	return line, nil
}
