package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/frederic-klein/yapm/internal/pack"
	"github.com/frederic-klein/yapm/internal/project"
	"github.com/frederic-klein/yapm/internal/toolchain"
)

var (
	green = color.New(color.FgGreen)
	gray  = color.New(color.FgHiBlack)
	bold  = color.New(color.Bold, color.FgCyan)
)

func packCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "pack", Short: "Manage the loaded pack"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list [pattern]",
		Short: "List packs in the packs directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(false, func(p *project.Project) error {
				pattern := ""
				if len(args) == 1 {
					pattern = args[0]
				}
				for _, e := range p.Index().Find(pattern) {
					mark := " "
					if p.Pack() != nil && p.Pack().Dir == e.Dir {
						mark = green.Sprint("*")
					}
					fmt.Printf("%s %-40s %-10s %s\n", mark, e.Key(), e.Version, gray.Sprint(e.Dir))
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "load <vendor.name|dir>",
		Short: "Load a pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(true, func(p *project.Project) error {
				if err := p.LoadPack(args[0]); err != nil {
					return fmt.Errorf("loading pack: %w", err)
				}
				green.Printf("Loaded %s %s\n", p.Pack().Key(), p.Pack().Version)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "unload",
		Short: "Uninstall every component and unload the pack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(true, func(p *project.Project) error {
				return p.UnloadPack()
			})
		},
	})
	return cmd
}

func deviceCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "device", Short: "Select the target device"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the devices of the loaded pack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(false, func(p *project.Project) error {
				pk := p.Pack()
				if pk == nil {
					return fmt.Errorf("no pack loaded")
				}
				for fi, fam := range pk.Families {
					bold.Printf("%d %s (%s)\n", fi, fam.Name, fam.Vendor)
					for di, d := range fam.Devices {
						printDevice(p, pack.Selector{Family: fi, SubFamily: -1, Device: di}, d)
					}
					for si, sub := range fam.SubFamilies {
						fmt.Printf("  %d %s\n", si, sub.Name)
						for di, d := range sub.Devices {
							printDevice(p, pack.Selector{Family: fi, SubFamily: si, Device: di}, d)
						}
					}
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "select <name> | <family> <subfamily|-1> <device>",
		Short: "Select a device by name or by index",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 && len(args) != 3 {
				return fmt.Errorf("expected a device name or three indexes, got %d args", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(true, func(p *project.Project) error {
				if len(args) == 1 {
					_, err := p.SelectDeviceByName(args[0])
					return err
				}
				sel, err := parseSelector(args)
				if err != nil {
					return err
				}
				_, err = p.SelectDevice(sel)
				return err
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the selected device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(false, func(p *project.Project) error {
				dev := p.Device()
				if dev == nil {
					gray.Println("no device selected")
					return nil
				}
				fmt.Printf("Device:    %s\n", dev.Info.Name)
				fmt.Printf("Vendor:    %s\n", dev.Vendor)
				fmt.Printf("Family:    %s\n", dev.Family)
				fmt.Printf("Core:      %s\n", dev.Info.Core)
				fmt.Printf("Selector:  %s\n", p.Selector())
				fmt.Printf("Toolchain: %s\n", p.Toolchain().ID)
				return nil
			})
		},
	})
	return cmd
}

func printDevice(p *project.Project, sel pack.Selector, d *pack.DeviceInfo) {
	mark := " "
	if cur := p.Selector(); cur != nil && *cur == sel {
		mark = green.Sprint("*")
	}
	fmt.Printf("  %s %-8s %s\n", mark, sel, d.Name)
}

func parseSelector(args []string) (pack.Selector, error) {
	var idx [3]int
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return pack.Selector{}, fmt.Errorf("invalid index %q: %w", a, err)
		}
		idx[i] = n
	}
	return pack.Selector{Family: idx[0], SubFamily: idx[1], Device: idx[2]}, nil
}

func toolchainCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "toolchain", Short: "Select the toolchain"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the built-in toolchains",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, n := range toolchain.Names() {
				fmt.Println(n)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <name>",
		Short: "Switch the toolchain and rewrite its dependence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(true, func(p *project.Project) error {
				_, err := p.SetToolchain(args[0])
				return err
			})
		},
	})
	return cmd
}

func componentCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "component", Short: "Install and remove pack components"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the components of the loaded pack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(false, func(p *project.Project) error {
				for _, c := range p.Components() {
					name := c.Group
					if c.Class != "" {
						name = c.Class + "." + c.Group
					}
					var flags []string
					if c.Installed {
						flags = append(flags, green.Sprint("installed"))
					}
					if !c.Enabled {
						flags = append(flags, gray.Sprint("disabled"))
					}
					if c.Expired {
						flags = append(flags, color.YellowString("expired"))
					}
					fmt.Printf("%-32s %s\n", name, strings.Join(flags, " "))
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "install <group>...",
		Short: "Install components and their requirements",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(true, func(p *project.Project) error {
				return p.Install(args...)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "uninstall <group>...",
		Short: "Uninstall components",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(true, func(p *project.Project) error {
				return p.Uninstall(args...)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove-all",
		Short: "Uninstall every component of the loaded pack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(true, func(p *project.Project) error {
				return p.RemoveAll()
			})
		},
	})
	return cmd
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <condition>",
		Short: "Evaluate a condition for the selected device and toolchain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(false, func(p *project.Project) error {
				reqs, err := p.Requirements(args[0])
				if err != nil {
					color.Red("false: %v", err)
					return nil
				}
				green.Println("true")
				for _, r := range reqs {
					fmt.Printf("  requires %s\n", r)
				}
				return nil
			})
		},
	}
}

func expiredCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expired",
		Short: "List installed components whose conditions no longer hold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(false, func(p *project.Project) error {
				for _, g := range p.Expired() {
					fmt.Println(g)
				}
				return nil
			})
		},
	}
}

func refreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Recreate the toolchain dependence and prune stale records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(true, func(p *project.Project) error {
				return p.Refresh(flushToolchain)
			})
		},
	}
	cmd.Flags().BoolVar(&flushToolchain, "flush-toolchain", false, "Rewrite the toolchain dependence")
	return cmd
}

func headerCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "header", Short: "Manage the generated RTE header"}

	cmd.AddCommand(&cobra.Command{
		Use:   "enable",
		Short: "Generate the header from the enabled installed components",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(true, func(p *project.Project) error {
				p.SetHeaderAutoGen(true)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "disable",
		Short: "Stop generating the header and delete it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(true, func(p *project.Project) error {
				p.SetHeaderAutoGen(false)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Verify the header on disk matches the installed components",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(false, func(p *project.Project) error {
				ok, err := p.CheckHeader()
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s is out of date; run 'yapm header enable'", p.HeaderPath())
				}
				green.Printf("%s is up to date\n", p.HeaderPath())
				return nil
			})
		},
	})
	return cmd
}

func depsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Show the merged include, library and define lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(false, func(p *project.Project) error {
				merged := p.Dependencies().Merged()
				for _, section := range []struct {
					title string
					items []string
				}{
					{"Include dirs", merged.IncList},
					{"Libraries", merged.LibList},
					{"Defines", merged.DefineList},
				} {
					bold.Println(section.title)
					for _, it := range section.items {
						fmt.Printf("  %s\n", it)
					}
				}
				return nil
			})
		},
	}
}
