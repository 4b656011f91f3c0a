package main

import "fmt"

func main() {
	x := 10
	y := 20
	sum := x + y
	message := fmt.Sprintf("sum=%d", sum)
	fmt.Println(message)
}
