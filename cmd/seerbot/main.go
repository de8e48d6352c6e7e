// Command seerbot serves and inspects SeerBot dialogue bots.
package main

func main() {
	Execute()
}
