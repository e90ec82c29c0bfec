// Package server launches the server runtime from the assembled runner
// directory and decides the verdict from its console.
//
// Both output streams are read line by line on their own goroutines and fed
// through one channel into a console.Scanner, so the scanner sees a single
// serialized sequence. Once the verdict is final the runtime is killed.
package server
