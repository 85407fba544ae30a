package xfile_test

import (
	"errors"
	"fmt"

	"github.com/omeyang/xsnap/pkg/util/xfile"
)

func ExampleValidateName() {
	fmt.Println(xfile.ValidateName("opaquecache.dat"))

	err := xfile.ValidateName("../etc/passwd")
	fmt.Println(errors.Is(err, xfile.ErrInvalidName))
	// Output:
	// <nil>
	// true
}

func ExampleJoinName() {
	path, err := xfile.JoinName("/var/cache/xsnap", "structuredcache.dat")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(path)
	// Output: /var/cache/xsnap/structuredcache.dat
}
