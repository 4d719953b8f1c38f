package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	cnn "github.com/LdDl/cnn-go"
)

var (
	dataRoot   = flag.String("data", "./.data", "Directory which contains cifar-10-batches-bin")
	device     = flag.String("device", "cpu", "Requested device (falls back to cpu)")
	saveRecord = flag.Bool("save-record", false, "Append console output to <record-dir>/compare_cnn_record<seed>.txt")
	recordDir  = flag.String("record-dir", "./plot", "Directory for record file")
	plotPath   = flag.String("plot", "", "Save training loss curve to this file (png, svg, pdf)")
)

func main() {
	flag.Parse()

	/* Hyperparameters are fixed: only locations and switches can be overridden */
	cfg := cnn.DefaultConfig()
	cfg.DataRoot = *dataRoot
	cfg.Device = *device
	cfg.SaveRecord = *saveRecord
	cfg.RecordDir = *recordDir
	cfg.PlotPath = *plotPath

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := cnn.RunExperiment(ctx, cfg, os.Stdout); err != nil {
		log.Fatalf("experiment failed: %v", err)
	}
}
