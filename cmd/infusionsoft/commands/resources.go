package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/infusionsoft/internal/crm"
)

// apiFunc performs one API call with a valid access token.
type apiFunc func(ctx context.Context, cmd *cli.Command, client *crm.Client, token string) (json.RawMessage, error)

// apiAction obtains an access token, refreshing it when expired, runs fn and
// prints the response.
func apiAction(fn apiFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		s, err := newSession(ctx, cmd)
		if err != nil {
			return err
		}
		defer s.Close(ctx)

		token, err := s.AccessToken(ctx)
		if err != nil {
			return fmt.Errorf("failed to obtain access token: %w", err)
		}

		raw, err := fn(ctx, cmd, s.Client(), token)
		if err != nil {
			return err
		}
		return printJSON(cmd.Root().Writer, raw)
	}
}

func fileFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "file",
		Aliases:  []string{"f"},
		Usage:    "JSON payload file, - for stdin",
		Required: true,
	}
}

func windowFlags() []cli.Flag {
	layouts := cli.TimestampConfig{Layouts: []string{time.RFC3339, time.DateOnly}}
	return []cli.Flag{
		&cli.TimestampFlag{Name: "since", Usage: "only records after this time (RFC 3339 or YYYY-MM-DD)", Config: layouts},
		&cli.TimestampFlag{Name: "until", Usage: "only records before this time (RFC 3339 or YYYY-MM-DD)", Config: layouts},
		&cli.IntFlag{Name: "limit", Usage: "maximum number of results"},
		&cli.IntFlag{Name: "offset", Usage: "number of results to skip"},
	}
}

func accountCommand() *cli.Command {
	return &cli.Command{
		Name:  "account",
		Usage: "Account profile and company info",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Retrieve account info",
				Action: apiAction(func(ctx context.Context, cmd *cli.Command, c *crm.Client, token string) (json.RawMessage, error) {
					return c.AccountInfo(ctx, token)
				}),
			},
			{
				Name:  "update",
				Usage: "Update account info",
				Flags: []cli.Flag{fileFlag()},
				Action: apiAction(func(ctx context.Context, cmd *cli.Command, c *crm.Client, token string) (json.RawMessage, error) {
					payload, err := readPayload(cmd.String("file"))
					if err != nil {
						return nil, err
					}
					return c.UpdateAccountInfo(ctx, token, payload)
				}),
			},
		},
	}
}

func affiliatesCommand() *cli.Command {
	return &cli.Command{
		Name:  "affiliates",
		Usage: "Affiliate commissions and model",
		Commands: []*cli.Command{
			{
				Name:  "commissions",
				Usage: "List commissions by affiliate or date range",
				Flags: append([]cli.Flag{
					&cli.Int64Flag{Name: "affiliate-id", Usage: "only commissions earned by this affiliate"},
				}, windowFlags()...),
				Action: apiAction(func(ctx context.Context, cmd *cli.Command, c *crm.Client, token string) (json.RawMessage, error) {
					filters := crm.CommissionFilters{
						AffiliateID: cmd.Int64("affiliate-id"),
						Since:       cmd.Timestamp("since"),
						Until:       cmd.Timestamp("until"),
						Limit:       cmd.Int("limit"),
						Offset:      cmd.Int("offset"),
					}
					return c.AffiliateCommissions(ctx, token, filters.FilterSet())
				}),
			},
			{
				Name:  "model",
				Usage: "Retrieve the custom fields of the Affiliate object",
				Action: apiAction(func(ctx context.Context, cmd *cli.Command, c *crm.Client, token string) (json.RawMessage, error) {
					return c.AffiliateModel(ctx, token)
				}),
			},
		},
	}
}

func appointmentsCommand() *cli.Command {
	return &cli.Command{
		Name:  "appointments",
		Usage: "Appointments of the authenticated user",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List appointments",
				Flags: append([]cli.Flag{
					&cli.Int64Flag{Name: "contact-id", Usage: "only appointments with this contact"},
				}, windowFlags()...),
				Action: apiAction(func(ctx context.Context, cmd *cli.Command, c *crm.Client, token string) (json.RawMessage, error) {
					filters := crm.AppointmentFilters{
						ContactID: cmd.Int64("contact-id"),
						Since:     cmd.Timestamp("since"),
						Until:     cmd.Timestamp("until"),
						Limit:     cmd.Int("limit"),
						Offset:    cmd.Int("offset"),
					}
					return c.Appointments(ctx, token, filters.FilterSet())
				}),
			},
			{
				Name:      "get",
				Usage:     "Retrieve an appointment",
				ArgsUsage: "ID",
				Action: apiAction(func(ctx context.Context, cmd *cli.Command, c *crm.Client, token string) (json.RawMessage, error) {
					id, err := parseID(cmd)
					if err != nil {
						return nil, err
					}
					return c.Appointment(ctx, token, id)
				}),
			},
			{
				Name:  "create",
				Usage: "Create an appointment",
				Flags: []cli.Flag{fileFlag()},
				Action: apiAction(func(ctx context.Context, cmd *cli.Command, c *crm.Client, token string) (json.RawMessage, error) {
					payload, err := readPayload(cmd.String("file"))
					if err != nil {
						return nil, err
					}
					return c.CreateAppointment(ctx, token, payload)
				}),
			},
			{
				Name:      "update",
				Usage:     "Update the given fields of an appointment",
				ArgsUsage: "ID",
				Flags:     []cli.Flag{fileFlag()},
				Action: apiAction(func(ctx context.Context, cmd *cli.Command, c *crm.Client, token string) (json.RawMessage, error) {
					id, payload, err := idAndPayload(cmd)
					if err != nil {
						return nil, err
					}
					return c.UpdateAppointment(ctx, token, id, payload)
				}),
			},
			{
				Name:      "replace",
				Usage:     "Replace all fields of an appointment",
				ArgsUsage: "ID",
				Flags:     []cli.Flag{fileFlag()},
				Action: apiAction(func(ctx context.Context, cmd *cli.Command, c *crm.Client, token string) (json.RawMessage, error) {
					id, payload, err := idAndPayload(cmd)
					if err != nil {
						return nil, err
					}
					return c.ReplaceAppointment(ctx, token, id, payload)
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete an appointment",
				ArgsUsage: "ID",
				Action: apiAction(func(ctx context.Context, cmd *cli.Command, c *crm.Client, token string) (json.RawMessage, error) {
					id, err := parseID(cmd)
					if err != nil {
						return nil, err
					}
					return c.DeleteAppointment(ctx, token, id)
				}),
			},
			{
				Name:  "model",
				Usage: "Retrieve the custom fields of the Appointment object",
				Action: apiAction(func(ctx context.Context, cmd *cli.Command, c *crm.Client, token string) (json.RawMessage, error) {
					return c.AppointmentsModel(ctx, token)
				}),
			},
			{
				Name:  "custom-field",
				Usage: "Add a custom field to the Appointment object",
				Flags: []cli.Flag{fileFlag()},
				Action: apiAction(func(ctx context.Context, cmd *cli.Command, c *crm.Client, token string) (json.RawMessage, error) {
					payload, err := readPayload(cmd.String("file"))
					if err != nil {
						return nil, err
					}
					return c.CreateAppointmentsCustomField(ctx, token, payload)
				}),
			},
		},
	}
}

// requestCommand exposes the dispatcher for endpoints without a dedicated command.
func requestCommand() *cli.Command {
	return &cli.Command{
		Name:      "request",
		Usage:     "Send a request to an arbitrary API path",
		ArgsUsage: "METHOD PATH",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "JSON payload file, - for stdin",
			},
		},
		Action: apiAction(func(ctx context.Context, cmd *cli.Command, c *crm.Client, token string) (json.RawMessage, error) {
			if cmd.Args().Len() != 2 {
				return nil, fmt.Errorf("expected METHOD and PATH, got %d arguments", cmd.Args().Len())
			}

			spec := crm.RequestSpec{
				Method: strings.ToUpper(cmd.Args().Get(0)),
				Path:   cmd.Args().Get(1),
				Token:  token,
			}
			if cmd.IsSet("file") {
				payload, err := readPayload(cmd.String("file"))
				if err != nil {
					return nil, err
				}
				spec.Body = payload
			}
			return c.Call(ctx, spec)
		}),
	}
}
