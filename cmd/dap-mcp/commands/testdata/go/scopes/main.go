package main

import "fmt"

func buildNums() []int {
	return []int{1, 2, 3, 4, 5}
}

func buildDict() map[string]int {
	return map[string]int{"a": 1, "b": 2, "c": 3}
}

func processCollection(nums []int, dict map[string]int) int {
	sum := 0
	count := 0
	for _, n := range nums {
		sum += n
		count++
	}
	for _, v := range dict {
		sum += v
		count++
	}
	return sum + count
}

func main() {
	nums := buildNums()
	dict := buildDict()
	result := processCollection(nums, dict)
	fmt.Println(result)
}
