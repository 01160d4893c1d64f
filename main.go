// @title StudyPlanner Backend API
// @version 1.0
// @description Backend server for the StudyPlanner study-time planning service.
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api

package main

import (
	"flag"
	"log"
	"studyplanner_backend/internal/app"
	"studyplanner_backend/internal/config"
	"studyplanner_backend/pkg/logger"
)

func main() {
	buildDataset := flag.Bool("build-dataset", false, "rebuild the engineered dataset from the raw tables at startup")
	train := flag.Bool("train", false, "run the training pipeline at startup")
	trainOnly := flag.Bool("train-only", false, "run the training pipeline and exit without serving")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.BuildDatasetOnStart = *buildDataset
	cfg.TrainOnStart = *train || *trainOnly
	cfg.TrainOnly = *trainOnly

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	if *trainOnly {
		log.Println("Training pipeline finished, exiting")
		return
	}

	application.Run()
}
