package service

import (
	"crypto/tls"
	"fmt"
	"mealswap-backend/config"
	"mealswap-backend/internal/repository/interfaces"
	"mealswap-backend/internal/util"
	"time"

	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
	"gopkg.in/mail.v2"
)

type EmailService struct {
	smtpHost   string
	smtpPort   int
	username   string
	password   string
	userRepo   interfaces.UserRepository
	jwtSecret  string
	domainName string
}

func NewEmailService(userRepo interfaces.UserRepository) *EmailService {
	return &EmailService{
		smtpHost:   config.AppConfig.SMTPHost,
		smtpPort:   config.AppConfig.SMTPPort,
		username:   config.AppConfig.SMTPUsername,
		password:   config.AppConfig.SMTPPassword,
		userRepo:   userRepo,
		jwtSecret:  config.AppConfig.JWTSecret,
		domainName: config.AppConfig.DomainName,
	}
}

func (s *EmailService) SendVerificationEmail(email, name string) error {
	token, err := s.generateEmailVerificationToken(email)
	if err != nil {
		util.Logger.Error("生成验证令牌失败", zap.Error(err))
		return fmt.Errorf("生成验证令牌失败: %w", err)
	}

	verificationLink := fmt.Sprintf("%s/verify-email?token=%s", config.AppConfig.FrontendURL, token)

	subject := "验证您的邮箱"
	body := fmt.Sprintf("亲爱的 %s，\n\n请点击以下链接验证您的邮箱：\n%s\n\n此链接将在24小时后过期。", name, verificationLink)

	s.sendEmailAsync(email, subject, body)
	return nil
}

// SendSuspensionNotice 发送账户停用通知
func (s *EmailService) SendSuspensionNotice(email, name string, until *time.Time) error {
	subject := "您的账户已被暂时停用"
	body := fmt.Sprintf("亲爱的 %s，\n\n由于检测到异常行为，您的账户已被暂时停用。", name)
	if until != nil {
		body += fmt.Sprintf("\n停用截止时间：%s。", until.Format("2006-01-02 15:04"))
	}
	body += "\n\n如有疑问请联系管理员。"

	s.sendEmailAsync(email, subject, body)
	return nil
}

// SendBanNotice 发送账户封禁通知
func (s *EmailService) SendBanNotice(email, name string) error {
	subject := "您的账户已被封禁"
	body := fmt.Sprintf("亲爱的 %s，\n\n您的账户因违反平台规则已被封禁。如有疑问请联系管理员。", name)

	s.sendEmailAsync(email, subject, body)
	return nil
}

func (s *EmailService) sendEmailAsync(to, subject, body string) {
	go func() {
		if err := s.sendEmail(to, subject, body); err != nil {
			util.Logger.Error("异步发送邮件失败", zap.Error(err), zap.String("to", to))
		}
	}()
}

func (s *EmailService) sendEmail(to, subject, body string) error {
	util.Logger.Info("开始发送邮件",
		zap.String("to", to),
		zap.String("subject", subject))

	m := mail.NewMessage()
	m.SetHeader("From", s.username)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := mail.NewDialer(s.smtpHost, s.smtpPort, s.username, s.password)
	d.Timeout = 20 * time.Second
	d.SSL = true
	d.TLSConfig = &tls.Config{InsecureSkipVerify: true}

	if err := d.DialAndSend(m); err != nil {
		util.Logger.Error("发送邮件失败", zap.Error(err))
		return fmt.Errorf("发送邮件失败: %w", err)
	}

	util.Logger.Info("邮件发送成功", zap.String("to", to))
	return nil
}

func (s *EmailService) generateEmailVerificationToken(email string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": email,
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
	})
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *EmailService) VerifyEmailToken(tokenString string) (int, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		util.Logger.Error("解析令牌失败", zap.Error(err))
		return 0, fmt.Errorf("无效的令牌: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		email, ok := claims["email"].(string)
		if !ok {
			util.Logger.Error("令牌中缺少邮箱信息")
			return 0, fmt.Errorf("无效的令牌: 缺少邮箱信息")
		}

		userID, err := s.getUserIDByEmail(email)
		if err != nil {
			util.Logger.Error("获取用户ID失败", zap.Error(err), zap.String("email", email))
			return 0, fmt.Errorf("获取用户ID失败: %w", err)
		}
		return userID, nil
	}

	util.Logger.Error("无效的令牌")
	return 0, fmt.Errorf("无效的令牌")
}

func (s *EmailService) getUserIDByEmail(email string) (int, error) {
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		return 0, fmt.Errorf("查找用户失败: %w", err)
	}
	if user == nil {
		return 0, fmt.Errorf("未找到用户")
	}
	return user.ID, nil
}
