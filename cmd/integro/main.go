package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	integro "github.com/synapticon/gointegro"
)

var (
	flagIp      string
	flagPort    int
	flagTimeout time.Duration
	flagVerbose bool
)

func connect() (*integro.EthernetDevice, error) {
	device := integro.NewEthernetDevice(flagIp, flagPort)
	if !device.Connect() {
		return nil, fmt.Errorf("could not connect to %s:%d", flagIp, flagPort)
	}
	return device, nil
}

func parseIndexArg(arg string) (uint16, error) {
	value, err := strconv.ParseUint(strings.TrimPrefix(arg, "0x"), 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q: %w", arg, err)
	}
	return uint16(value), nil
}

func parseSubindexArg(arg string) (uint8, error) {
	value, err := strconv.ParseUint(strings.TrimPrefix(arg, "0x"), 16, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid subindex %q: %w", arg, err)
	}
	return uint8(value), nil
}

func stateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Read or change the EtherCAT state",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Read the current state",
		RunE: func(cmd *cobra.Command, args []string) error {
			device, err := connect()
			if err != nil {
				return err
			}
			defer device.Disconnect()
			state, err := device.GetState(flagTimeout)
			if err != nil {
				return err
			}
			fmt.Printf("%s (%d)\n", integro.StateName(state), state)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set [init|boot|preop|safeop|op]",
		Short: "Request a state transition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			states := map[string]uint8{
				"init":   integro.STATE_INIT,
				"boot":   integro.STATE_BOOT,
				"preop":  integro.STATE_PREOP,
				"safeop": integro.STATE_SAFEOP,
				"op":     integro.STATE_OP,
			}
			state, ok := states[strings.ToLower(args[0])]
			if !ok {
				return fmt.Errorf("unknown state %q", args[0])
			}
			device, err := connect()
			if err != nil {
				return err
			}
			defer device.Disconnect()
			return device.SetState(state, flagTimeout)
		},
	})
	return cmd
}

func sdoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sdo",
		Short: "Read or write single object dictionary entries",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "read <index> <subindex>",
		Short: "Read raw value bytes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndexArg(args[0])
			if err != nil {
				return err
			}
			subindex, err := parseSubindexArg(args[1])
			if err != nil {
				return err
			}
			device, err := connect()
			if err != nil {
				return err
			}
			defer device.Disconnect()
			data, err := device.ReadSdo(index, subindex, flagTimeout)
			if err != nil {
				return err
			}
			fmt.Println(integro.BytesToHexString(data))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "write <index> <subindex> <byte> [byte...]",
		Short: "Write raw value bytes",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndexArg(args[0])
			if err != nil {
				return err
			}
			subindex, err := parseSubindexArg(args[1])
			if err != nil {
				return err
			}
			data := make([]byte, 0, len(args)-2)
			for _, arg := range args[2:] {
				b, err := strconv.ParseUint(strings.TrimPrefix(arg, "0x"), 16, 8)
				if err != nil {
					return fmt.Errorf("invalid byte %q: %w", arg, err)
				}
				data = append(data, byte(b))
			}
			device, err := connect()
			if err != nil {
				return err
			}
			defer device.Disconnect()
			return device.WriteSdo(index, subindex, data, flagTimeout)
		},
	})
	return cmd
}

func fileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file",
		Short: "Access the device filesystem",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List files on the device",
		RunE: func(cmd *cobra.Command, args []string) error {
			device, err := connect()
			if err != nil {
				return err
			}
			defer device.Disconnect()
			files, err := device.ReadFileList(false, flagTimeout)
			if err != nil {
				return err
			}
			for _, file := range files {
				fmt.Println(file)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "read <name> <local>",
		Short: "Download a file from the device",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			device, err := connect()
			if err != nil {
				return err
			}
			defer device.Disconnect()
			content, err := device.ReadFile(args[0], flagTimeout)
			if err != nil {
				return err
			}
			return os.WriteFile(args[1], content, 0o644)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "write <local> <name>",
		Short: "Upload a file to the device",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			device, err := connect()
			if err != nil {
				return err
			}
			defer device.Disconnect()
			return device.WriteFile(args[1], content, flagTimeout)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <name>",
		Short: "Delete a file on the device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			device, err := connect()
			if err != nil {
				return err
			}
			defer device.Disconnect()
			return device.RemoveFile(args[0], flagTimeout)
		},
	})
	return cmd
}

func paramsCmd() *cobra.Command {
	var withValues bool
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Load and print the object dictionary",
		RunE: func(cmd *cobra.Command, args []string) error {
			device, err := connect()
			if err != nil {
				return err
			}
			defer device.Disconnect()
			if err := device.LoadParameters(withValues, flagTimeout); err != nil {
				return err
			}
			for _, parameter := range device.Parameters() {
				fmt.Println(parameter)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withValues, "values", false, "also read parameter values")
	return cmd
}

func pdoCmd() *cobra.Command {
	var configPath string
	var cycles int
	cmd := &cobra.Command{
		Use:   "pdo",
		Short: "Run cyclic process data exchanges",
		RunE: func(cmd *cobra.Command, args []string) error {
			device, err := connect()
			if err != nil {
				return err
			}
			defer device.Disconnect()
			if err := device.LoadParameters(true, 0); err != nil {
				return err
			}
			if configPath != "" {
				if err := device.LoadPdoConfigFile(configPath); err != nil {
					return err
				}
			} else if err := device.ReadPdoMappingsFromDevice(4, flagTimeout); err != nil {
				return err
			}
			for i := 0; i < cycles; i++ {
				if err := device.ExchangeProcessDataAndUpdateParameters(); err != nil {
					return err
				}
			}
			mappings := device.PdoMappings()
			for _, entry := range mappings.TxPdos {
				parameter, err := device.FindParameter(entry.Index, entry.SubIndex)
				if err != nil {
					return err
				}
				fmt.Println(parameter)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "UI PDO mapping config (json or yaml)")
	cmd.Flags().IntVar(&cycles, "cycles", 1, "number of exchanges to run")
	return cmd
}

func firmwareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "firmware <app_firmware.bin|com_firmware.bin>",
		Short: "Upload a firmware image and trigger the update",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			name := filepath.Base(args[0])
			if name != integro.FirmwareFileApp && name != integro.FirmwareFileCom {
				return fmt.Errorf("image must be named %s or %s", integro.FirmwareFileApp, integro.FirmwareFileCom)
			}
			device, err := connect()
			if err != nil {
				return err
			}
			defer device.Disconnect()
			if err := device.WriteFile(name, content, flagTimeout); err != nil {
				return err
			}
			return device.TriggerFirmwareUpdateFile(name, flagTimeout)
		},
	}
	return cmd
}

func main() {
	root := &cobra.Command{
		Use:   "integro",
		Short: "Client for SOMANET Integro drives over Ethernet",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagVerbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	root.PersistentFlags().StringVar(&flagIp, "ip", "192.168.100.5", "device IP address")
	root.PersistentFlags().IntVar(&flagPort, "port", 8080, "device TCP port")
	root.PersistentFlags().DurationVar(&flagTimeout, "timeout", 0, "per call timeout, 0 uses the operation default")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	root.AddCommand(stateCmd(), sdoCmd(), fileCmd(), paramsCmd(), pdoCmd(), firmwareCmd())

	if err := root.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
