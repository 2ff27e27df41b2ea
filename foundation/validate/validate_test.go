package validate_test

import (
	"testing"

	"github.com/simplechain/node/foundation/validate"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type send struct {
	To     string `json:"to" validate:"required,pubkey"`
	Amount uint32 `json:"amount" validate:"gt=0"`
}

func Test_Check(t *testing.T) {
	const pub = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"

	type table struct {
		name   string
		val    send
		fields []string
	}

	tt := []table{
		{name: "valid", val: send{To: pub, Amount: 1}},
		{name: "missing", val: send{Amount: 1}, fields: []string{"to"}},
		{name: "bad-key", val: send{To: pub[:10], Amount: 1}, fields: []string{"to"}},
		{name: "zero", val: send{To: pub}, fields: []string{"amount"}},
	}

	t.Log("Given the need to validate request models.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				err := validate.Check(tst.val)
				if len(tst.fields) == 0 {
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould pass validation: %s", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould pass validation.", success, testID)
					return
				}

				fe := validate.GetFieldErrors(err)
				if fe == nil {
					t.Fatalf("\t%s\tTest %d:\tShould get field errors: %v", failed, testID, err)
				}

				fields := fe.Fields()
				for _, name := range tst.fields {
					if fields[name] == "" {
						t.Fatalf("\t%s\tTest %d:\tShould report the %q field: %v", failed, testID, name, fields)
					}
				}
				t.Logf("\t%s\tTest %d:\tShould report the failing fields.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}
