// Command smesweep runs one synchronized laser sweep / power measurement
// from the command line and writes the result as CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/theckman/yacspin"
	"go.uber.org/multierr"

	"github.com/photonbench/golight/mpm"
	"github.com/photonbench/golight/sme"
	"github.com/photonbench/golight/tsl"
)

func main() {
	var (
		laserAddr = flag.String("laser", "", "laser address, host:port")
		meterAddr = flag.String("meter", "", "power meter address, host:port")
		mock      = flag.Bool("mock", false, "simulate the instruments in memory")
		start     = flag.Float64("start", 1500, "start wavelength, nm")
		stop      = flag.Float64("stop", 1600, "stop wavelength, nm")
		step      = flag.Float64("step", 0.1, "trigger step, nm")
		power     = flag.Float64("power", 0, "laser output power, dBm")
		speed     = flag.Float64("speed", 50, "sweep speed, nm/s")
		mpm215    = flag.Bool("mpm215", false, "meter has an MPM-215 module (auto gain)")
		module    = flag.Int("module", 0, "meter module slot to record")
		channel   = flag.Int("channel", 1, "meter channel to record")
		timeout   = flag.Duration("timeout", time.Minute, "bound on the whole sweep")
		out       = flag.String("o", "sweep.csv", "output CSV path")
		verbose   = flag.Bool("v", false, "log each status poll")
	)
	flag.Parse()

	logrus.SetLevel(logrus.WarnLevel)
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	var (
		laser sme.Laser
		meter sme.PowerMeter
	)
	if *mock {
		laser = tsl.NewMock()
		meter = mpm.NewMock()
	} else {
		if *laserAddr == "" || *meterAddr == "" {
			log.Fatal("both -laser and -meter are required without -mock")
		}
		laser = tsl.New(*laserAddr)
		meter = mpm.New(*meterAddr)
	}

	sweep := sme.New(laser, meter)
	defer func() {
		if err := closeAll(sweep); err != nil {
			log.Println("close:", err)
		}
	}()

	cfg := sme.Config{
		Start:   *start,
		Stop:    *stop,
		Step:    *step,
		Power:   *power,
		Speed:   *speed,
		MPM215:  *mpm215,
		Module:  *module,
		Channel: *channel,
		Timeout: *timeout,
	}
	if err := sweep.Configure(cfg); err != nil {
		log.Fatal("configure: ", err)
	}

	spinner, err := yacspin.New(yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[59],
		Suffix:          " sweeping",
		SuffixAutoColon: true,
		StopCharacter:   "✓",
		StopColors:      []string{"fgGreen"},
	})
	if err == nil {
		spinner.Start()
		go func() {
			for sweep.State() == sme.Idle || sweep.State() == sme.Triggered || sweep.State() == sme.Polling {
				spinner.Message(sweep.LastStatus())
				time.Sleep(200 * time.Millisecond)
			}
		}()
	}

	runErr := sweep.Run(context.Background())
	if spinner != nil {
		if runErr != nil {
			spinner.StopFail()
		} else {
			spinner.Stop()
		}
	}
	if runErr != nil {
		log.Fatal("sweep: ", runErr)
	}

	result, err := sweep.Result()
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(*out)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	if err := result.EncodeCSV(f); err != nil {
		log.Fatal("write csv: ", err)
	}
	fmt.Printf("%d points in %v written to %s\n", result.Len(), result.Elapsed().Round(time.Millisecond), *out)
}

func closeAll(closers ...interface{ Close() error }) error {
	var err error
	for _, c := range closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}
