package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xbasekit/xbase/internal/utils"
	"github.com/xbasekit/xbase/xbase"
)

func main() {
	file := flag.String("file", "", "table file to open")
	dialect := flag.String("dialect", "", "force a dialect: db3, clp, fp or vfp")
	readOnly := flag.Bool("ro", false, "open the table read-only")
	flag.Parse()

	if *file == "" {
		log.Fatal("usage: xbase-cli -file table.dbf [-dialect db3|clp|fp|vfp] [-ro]")
	}

	var opts []xbase.Option
	if *dialect != "" {
		d, err := dialectByName(*dialect)
		if err != nil {
			log.Fatal(err)
		}
		opts = append(opts, xbase.WithDialect(d))
	}
	if *readOnly {
		opts = append(opts, xbase.ReadOnly())
	}

	table, err := xbase.Open(*file, opts...)
	if err != nil {
		log.Fatal(err)
	}
	defer table.Close()

	fmt.Printf("Opened %s: %s, %d records\n", *file, table.Dialect().Name, table.Len())
	fmt.Println("Type commands. 'help' for information or 'exit' to quit.")

	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("> ")

		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("input error:", err)
			return
		}

		line = strings.TrimSpace(line)

		if line == "" {
			continue
		}

		if line == "exit" {
			return
		}

		cmd, args, err := utils.SplitStringIntoCommandAndArguments(line)
		if err != nil {
			fmt.Println("parse error:", err)
			continue
		}

		if err := execute(table, cmd, args); err != nil {
			fmt.Println("error:", err)
		}
	}
}

func execute(table *xbase.Table, cmd string, args []string) error {
	switch cmd {
	case "help":
		printHelp()
		return nil
	case "info":
		fmt.Printf("%s (%s)\n", table.Path(), table.Dialect().Name)
		fmt.Printf("records: %d, last update: %s, code page: %#x\n",
			table.Len(), table.LastUpdate().Format("2006-01-02"), table.CodePage())
		for _, fi := range table.Structure() {
			fmt.Println(" ", fi)
		}
		return nil
	case "list":
		return table.Scan(func(rec *xbase.Record) error {
			values := make([]string, 0, len(table.FieldNames()))
			for _, name := range table.FieldNames() {
				v, err := rec.Value(name)
				if err != nil {
					return err
				}
				values = append(values, v.String())
			}
			fmt.Printf("%6d  %s\n", rec.Recno(), strings.Join(values, " | "))
			return nil
		})
	case "get":
		recno, err := argRecno(table, args)
		if err != nil {
			return err
		}
		rec, err := table.At(recno)
		if err != nil {
			return err
		}
		for _, name := range table.FieldNames() {
			v, err := rec.Value(name)
			if err != nil {
				return err
			}
			fmt.Printf("  %-10s %s\n", name, v)
		}
		if rec.IsDeleted() {
			fmt.Println("  (deleted)")
		}
		return nil
	case "append":
		names := table.FieldNames()
		if len(args) > len(names) {
			return fmt.Errorf("%d values for %d fields", len(args), len(names))
		}
		values := make(map[string]xbase.Value, len(args))
		for i, raw := range args {
			v, err := parseValue(table, names[i], raw)
			if err != nil {
				return err
			}
			values[names[i]] = v
		}
		rec, err := table.Append(values)
		if err != nil {
			return err
		}
		fmt.Printf("appended record %d\n", rec.Recno())
		return nil
	case "set":
		if len(args) != 3 {
			return fmt.Errorf("usage: set <recno> <field> <value>")
		}
		recno, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		rec, err := table.At(recno)
		if err != nil {
			return err
		}
		v, err := parseValue(table, args[1], args[2])
		if err != nil {
			return err
		}
		return rec.Update(func(f *xbase.Flux) error {
			return f.Set(args[1], v)
		})
	case "delete":
		recno, err := argRecno(table, args)
		if err != nil {
			return err
		}
		rec, err := table.At(recno)
		if err != nil {
			return err
		}
		return rec.Delete()
	case "recall":
		recno, err := argRecno(table, args)
		if err != nil {
			return err
		}
		rec, err := table.At(recno)
		if err != nil {
			return err
		}
		return rec.Recall()
	case "pack":
		if err := table.Pack(); err != nil {
			return err
		}
		fmt.Printf("packed, %d records remain\n", table.Len())
		return nil
	case "zap":
		return table.Zap()
	default:
		return fmt.Errorf("unknown command %q, try 'help'", cmd)
	}
}

func argRecno(table *xbase.Table, args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected a record number (0..%d)", table.Len()-1)
	}
	return strconv.Atoi(args[0])
}

// parseValue converts a command-line string to the value kind the field's
// type expects.
func parseValue(table *xbase.Table, field, raw string) (xbase.Value, error) {
	var fi *xbase.FieldInfo
	for _, cand := range table.Structure() {
		if strings.EqualFold(cand.Name, field) {
			fi = &cand
			break
		}
	}
	if fi == nil {
		return xbase.Null, fmt.Errorf("field %s does not exist", field)
	}
	if raw == "" {
		return xbase.Null, nil
	}
	switch fi.Type {
	case xbase.NumericField, xbase.FloatField:
		if fi.Decimals == 0 {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return xbase.Null, err
			}
			return xbase.Int(n), nil
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return xbase.Null, err
		}
		return xbase.Float(f), nil
	case xbase.IntegerField:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return xbase.Null, err
		}
		return xbase.Int(n), nil
	case xbase.DoubleField, xbase.CurrencyField:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return xbase.Null, err
		}
		return xbase.Float(f), nil
	case xbase.LogicalField:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return xbase.Null, err
		}
		return xbase.Bool(b), nil
	case xbase.DateField:
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return xbase.Null, err
		}
		return xbase.Date(t), nil
	case xbase.DateTimeField, xbase.TimestampField:
		t, err := time.Parse("2006-01-02 15:04:05", raw)
		if err != nil {
			return xbase.Null, err
		}
		return xbase.DateTime(t), nil
	default:
		return xbase.Text(raw), nil
	}
}

func dialectByName(name string) (*xbase.Dialect, error) {
	switch strings.ToLower(name) {
	case "db3":
		return xbase.DBase3, nil
	case "clp":
		return xbase.Clipper, nil
	case "fp":
		return xbase.FoxPro, nil
	case "vfp":
		return xbase.VisualFoxPro, nil
	}
	return nil, fmt.Errorf("unknown dialect %q (db3, clp, fp, vfp)", name)
}

func printHelp() {
	fmt.Println(`commands:
  info                        show the table structure
  list                        print every live record
  get <recno>                 print one record
  append <v1> [v2 ...]        append a record with positional values
  set <recno> <field> <value> update one field
  delete <recno>              set the tombstone flag
  recall <recno>              clear the tombstone flag
  pack                        physically remove deleted records
  zap                         remove every record
  exit                        quit`)
}
