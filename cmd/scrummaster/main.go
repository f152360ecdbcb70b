// Command scrummaster answers questions about tracker exports.
package main

func main() {
	Execute()
}
