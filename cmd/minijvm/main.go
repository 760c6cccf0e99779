/*
 * minijvm - a minimal Java Virtual Machine
 */

package main

func main() {
	Execute()
}
