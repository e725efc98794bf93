package errs_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/zoroproject/zoro/business/web/errs"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Trusted(t *testing.T) {
	t.Log("Given the need to classify handler errors for the client response.")
	{
		t.Log("\tTest 0:\tWhen a handler wraps an expected error.")
		{
			err := errs.NewTrusted(errors.New("block not found"), http.StatusNotFound)
			wrapped := fmt.Errorf("querying chain: %w", err)

			if !errs.IsTrusted(wrapped) {
				t.Fatalf("\t%s\tTest 0:\tShould detect the trusted error through the chain.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould detect the trusted error through the chain.", success)

			trs := errs.GetTrusted(wrapped)
			if trs == nil || trs.Status != http.StatusNotFound {
				t.Fatalf("\t%s\tTest 0:\tShould extract the trusted error with its status.", failed)
			}
			if trs.Error() != "block not found" {
				t.Fatalf("\t%s\tTest 0:\tShould expose the wrapped message, got %q.", failed, trs.Error())
			}
			t.Logf("\t%s\tTest 0:\tShould extract the trusted error with its status.", success)
		}

		t.Log("\tTest 1:\tWhen an error was never marked trusted.")
		{
			err := errors.New("index corruption")

			if errs.IsTrusted(err) {
				t.Fatalf("\t%s\tTest 1:\tShould not classify a plain error as trusted.", failed)
			}
			if errs.GetTrusted(err) != nil {
				t.Fatalf("\t%s\tTest 1:\tShould return nil for a plain error.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould not classify a plain error as trusted.", success)
		}
	}
}
