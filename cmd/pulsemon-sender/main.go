// Command pulsemon-sender writes valid Type 0x01 frames to a serial port at
// a configurable rate, for bench testing the monitor against a virtual
// serial pair (socat on Linux, com0com on Windows).
package main

import (
	"flag"
	"log"
	"time"

	"go.bug.st/serial"

	"github.com/orangelab/pulsemon/internal/protocol"
)

var (
	portPath        = flag.String("port", "", "serial port to write to (required)")
	baudRate        = flag.Int("baud", 115200, "baud rate")
	rate            = flag.Int("rate", 100, "samples per second")
	samplesPerFrame = flag.Int("samples-per-frame", 5, "samples packed into each frame")
	maxADC          = flag.Int("max-adc", 1023, "maximum ADC code of the sawtooth test signal")
)

func main() {
	flag.Parse()

	if *portPath == "" {
		log.Fatal("-port is required")
	}
	if *rate < 1 || *samplesPerFrame < 1 {
		log.Fatal("-rate and -samples-per-frame must be positive")
	}

	port, err := serial.Open(*portPath, &serial.Mode{BaudRate: *baudRate})
	if err != nil {
		log.Fatalf("failed to open serial port: %v", err)
	}
	defer port.Close()

	log.Printf("sending to %s @ %d: %d sps, %d samples per frame",
		*portPath, *baudRate, *rate, *samplesPerFrame)

	interval := time.Duration(*samplesPerFrame) * time.Second / time.Duration(*rate)
	var sampleID uint16
	for {
		pairs := make([]protocol.SamplePair, *samplesPerFrame)
		for i := range pairs {
			sampleID++
			// sawtooth sweep across the ADC range
			pairs[i] = protocol.SamplePair{
				SampleID: sampleID,
				ADC:      uint16(int(sampleID) % (*maxADC + 1)),
			}
		}
		frame, err := protocol.EncodeSamples(pairs)
		if err != nil {
			log.Fatalf("failed to encode frame: %v", err)
		}
		if _, err := port.Write(frame); err != nil {
			log.Fatalf("failed to write frame: %v", err)
		}
		time.Sleep(interval)
	}
}
