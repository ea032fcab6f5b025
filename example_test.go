// SPDX-License-Identifier: Apache-2.0

package memory_test

import (
	"fmt"

	"github.com/cockroachdb/errors"

	memory "github.com/wundergraph/go-memory"
)

func ExampleManager() {
	m, err := memory.NewManager(64 * 1024)
	if err != nil {
		panic(err)
	}
	defer m.Release()

	arena, err := m.MakeArena(16 * 1024)
	if err != nil {
		panic(err)
	}

	ids := memory.Alloc[uint32](arena, 3)
	ids[0], ids[1], ids[2] = 7, 8, 9
	name, _ := memory.CloneString(arena, "frame")

	fmt.Println(ids, name, m.AllocationCount())
	// Output: [7 8 9] frame 1
}

func ExampleArena_Scratch() {
	region, _ := memory.NewRegion(1024)
	arena := memory.NewArena(region.Bytes())
	_, _ = arena.AllocAlign(100, 1)

	func() {
		s := arena.Scratch()
		defer s.Release()
		_, _ = s.Arena.AllocAlign(50, 1)
		fmt.Println("inside:", arena.Offset())
	}()
	fmt.Println("after:", arena.Offset())
	// Output:
	// inside: 150
	// after: 100
}

func ExampleStack_Pop() {
	region, _ := memory.NewRegion(1024)
	stack := memory.NewStack(region.Bytes())

	a, _ := stack.AllocAlign(16, 8)
	_, _ = stack.AllocAlign(32, 8)
	_ = stack.Pop()

	size, _ := stack.SizeOf(stack.Top())
	fmt.Println(&stack.Top()[0] == &a[0], size)
	// Output: true 16
}

func ExampleDynArray() {
	region, _ := memory.NewRegion(4096)
	arena := memory.NewArena(region.Bytes())

	values, _ := memory.NewDynArray[int](arena, 0)
	for i := 1; i <= 5; i++ {
		_ = values.Push(i * i)
	}
	fmt.Println(values.Items(), values.Cap())
	// Output: [1 4 9 16 25] 8
}

func ExampleBuffer() {
	region, _ := memory.NewRegion(4096)
	buf := memory.NewBuffer(memory.NewArena(region.Bytes()))

	fmt.Fprintf(buf, "%d bytes ", 42)
	_, _ = buf.WriteString("written")
	fmt.Println(buf.String())
	// Output: 42 bytes written
}

func ExampleWithAbortHook() {
	region, _ := memory.NewRegion(64)
	arena := memory.NewArena(region.Bytes(),
		memory.WithAbortOnMemoryError(true),
		memory.WithAbortHook(func(err error) {
			fmt.Println("abort:", errors.Is(err, memory.ErrOutOfMemory))
		}),
	)
	_, err := arena.AllocAlign(128, 8)
	fmt.Println(err != nil)
	// Output:
	// abort: true
	// true
}
