package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/normalize"
)

var (
	enqueueName  string
	enqueuePhone string
	enqueueNotes string
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Append a QUEUED contact to the campaign store",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("enqueue"); err != nil {
			return err
		}

		phone, err := dialablePhone(enqueuePhone)
		if err != nil {
			return err
		}

		env, err := newStoreEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		rec := model.CallRecord{
			ContactName:       enqueueName,
			TargetPhoneNumber: phone,
			Status:            model.StatusQueued,
			Notes:             enqueueNotes,
		}
		if err := env.campaignStore.Append(cmd.Context(), []model.CallRecord{rec}); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "queued %s (%s)\n", enqueueName, phone)
		return nil
	},
}

// dialablePhone canonicalizes the --phone flag. Unlike the best-effort dial
// formatting used at dispatch time, enqueue rejects input that does not carry
// a full subscriber number.
func dialablePhone(raw string) (string, error) {
	phone := normalize.ValidatePhone(raw)
	if phone == "" || strings.HasPrefix(phone, normalize.InvalidPrefix) {
		return "", eris.Errorf("cannot derive a dialable number from %q", raw)
	}
	return phone, nil
}

func init() {
	enqueueCmd.Flags().StringVar(&enqueueName, "name", "", "contact name")
	enqueueCmd.Flags().StringVar(&enqueuePhone, "phone", "", "target phone number")
	enqueueCmd.Flags().StringVar(&enqueueNotes, "notes", "", "optional notes")
	_ = enqueueCmd.MarkFlagRequired("phone")
	rootCmd.AddCommand(enqueueCmd)
}
