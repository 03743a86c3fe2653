package quota

import (
	"context"
	"fmt"
	"time"
)

func ExampleGuard_Do() {
	g, err := NewGuard(NewMemoryStore(), 1, time.Minute)
	if err != nil {
		panic(err)
	}

	work := func(ctx context.Context) error {
		fmt.Println("working")
		return nil
	}

	_ = g.Do(context.Background(), "OrderService.List", "u1", work)
	err = g.Do(context.Background(), "OrderService.List", "u1", work)
	fmt.Println(IsQuotaExceeded(err))
	// Output:
	// working
	// true
}
