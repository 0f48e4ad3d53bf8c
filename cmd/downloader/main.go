package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/getsentry/calltrace/internal/logutil"
	"github.com/getsentry/calltrace/internal/reportclient"
)

const numWorkers = 16

func download(ctx context.Context, client reportclient.Client, root string, reports chan string, errorsChan chan error, wg *sync.WaitGroup) {
	defer wg.Done()

	for reportID := range reports {
		path := filepath.Join(root, reportID+".txt")
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := downloadReport(ctx, client, reportID, path); err != nil {
			errorsChan <- fmt.Errorf("%s: %w", reportID, err)
			continue
		}
		log.Info().Str("report_id", reportID).Msg("downloaded")
	}
}

func downloadReport(ctx context.Context, client reportclient.Client, reportID, path string) error {
	body, err := client.Traceback(ctx, reportID)
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

func main() {
	args := os.Args[1:]
	if len(args) != 3 {
		fmt.Println("./downloader <calltrace host> <file of report IDs> <destination directory>")
		return
	}

	logutil.ConfigureLogger(os.Getenv("CALLTRACE_LOG_LEVEL"))

	client, err := reportclient.NewClient(args[0], 3)
	if err != nil {
		log.Fatal().Err(err).Msg("error setting up the client")
	}

	reportIDList := args[1]
	destination := args[2]
	if err := os.MkdirAll(destination, 0o755); err != nil {
		log.Fatal().Err(err).Msg("error creating the destination directory")
	}
	file, err := os.Open(reportIDList)
	if err != nil {
		log.Fatal().Err(err).Msg("error opening the report list")
	}
	defer file.Close()

	ctx := context.Background()
	var wg sync.WaitGroup

	reports := make(chan string)
	errorsChan := make(chan error)
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go download(ctx, client, destination, reports, errorsChan, &wg)
	}

	done := make(chan struct{})
	go func() {
		for err := range errorsChan {
			if errors.Is(err, reportclient.ErrReportNotFound) {
				log.Warn().Err(err).Msg("report not found")
			} else {
				log.Err(err).Msg("download failed")
			}
		}
		close(done)
	}()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if id := strings.TrimSpace(scanner.Text()); id != "" {
			reports <- id
		}
	}

	if err := scanner.Err(); err != nil {
		log.Fatal().Err(err).Msg("error reading the report list")
	}

	close(reports)
	wg.Wait()
	close(errorsChan)
	<-done
}
