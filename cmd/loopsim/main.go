// The loopsim command inspects artifacts produced by simulated loop test
// runs, such as recorded dispatch traces.
package main

func main() {
	Execute()
}
