// Package enforce aborts on conditions that leave a service unable to run,
// such as a listener that cannot be opened.
package enforce

import (
	"fmt"
	"strconv"

	"github.com/greymass/workutils/libraries/logger"
)

func init() {
	CheckPlatform()
}

// ENFORCE panics when query is false or a non-nil error. args describe the
// failure and are logged under the "enforce" category first.
func ENFORCE(query interface{}, args ...interface{}) {
	switch q := query.(type) {
	case bool:
		if !q {
			fail(fmt.Errorf("enforce failed: %s", describe(args)), args)
		}
	case error:
		if q != nil {
			fail(q, args)
		}
	}
}

func fail(err error, args []interface{}) {
	logger.Printf("enforce", "ENFORCE: %s: %v", describe(args), err)
	panic(err)
}

func describe(args []interface{}) string {
	if len(args) == 0 {
		return "condition not met"
	}
	return fmt.Sprint(args...)
}

// CheckPlatform requires a 64-bit int. Instants and offsets mix int and
// int64 arithmetic.
func CheckPlatform() {
	ENFORCE(strconv.IntSize == 64, "must be on a 64 bit system")
}
