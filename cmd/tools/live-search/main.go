// Command live-search runs a batch of live flight searches from a CSV file and
// writes the normalized itineraries to another CSV file.
package main

func main() {
	Execute()
}
