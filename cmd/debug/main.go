package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jwulff/lotscope-go/internal/domain"
	"github.com/jwulff/lotscope-go/internal/errorlot"
	"github.com/jwulff/lotscope-go/internal/sensordata"
)

type sensorDump struct {
	Date    domain.Date `json:"date"`
	Columns []string    `json:"columns"`
	Rows    int         `json:"rows"`
	First   [][]string  `json:"first_rows"`
}

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: debug lots <file> | debug sensor <file>")
		os.Exit(1)
	}

	var (
		out any
		err error
	)
	switch os.Args[1] {
	case "lots":
		out, err = errorlot.Load(os.Args[2])
	case "sensor":
		out, err = dumpSensor(os.Args[2])
	default:
		fmt.Printf("Unknown kind: %s\n", os.Args[1])
		os.Exit(1)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	data, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(data))
}

func dumpSensor(path string) (*sensorDump, error) {
	date, err := sensordata.DateFromFilename(path)
	if err != nil {
		return nil, err
	}
	table, err := sensordata.ReadTable(path)
	if err != nil {
		return nil, err
	}
	first := table.Rows
	if len(first) > 5 {
		first = first[:5]
	}
	return &sensorDump{Date: date, Columns: table.Columns, Rows: table.Len(), First: first}, nil
}
