package xblob_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/omeyang/xsnap/pkg/storage/xblob"
)

func ExampleNewMemory() {
	ctx := context.Background()
	gw := xblob.NewMemory()

	_, err := gw.Read(ctx, "snapshot.dat")
	fmt.Println(errors.Is(err, xblob.ErrNotFound))

	_ = gw.Write(ctx, "snapshot.dat", []byte("payload"))
	data, _ := gw.Read(ctx, "snapshot.dat")
	fmt.Println(string(data))
	// Output:
	// true
	// payload
}
